package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AllEvents - имя подписки, получающей каждое опубликованное событие.
const AllEvents = "*"

const listenerTimeout = time.Minute

// Event представляет собой любое событие в системе.
type Event interface {
	Name() string
}

// Listener - это обработчик (слушатель) событий.
type Listener func(ctx context.Context, event Event) error

// Bus - шина событий. Слушатели вызываются асинхронно, их ошибки и паники
// только логируются и не доходят до издателя.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Subscribe подписывает слушателя на событие или на AllEvents.
func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	eventName := event.Name()
	targets := make([]Listener, 0, len(b.listeners[eventName])+len(b.listeners[AllEvents]))
	targets = append(targets, b.listeners[eventName]...)
	targets = append(targets, b.listeners[AllEvents]...)
	b.mu.RUnlock()

	for _, listener := range targets {
		b.wg.Add(1)
		go b.dispatch(listener, event)
	}
}

func (b *Bus) dispatch(l Listener, event Event) {
	defer b.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("Паника в обработчике события",
				zap.String("event", event.Name()),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	// Контекст запроса к этому моменту может быть уже отменён.
	ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
	defer cancel()

	if err := l(ctx, event); err != nil {
		b.logger.Error("Ошибка в обработчике события",
			zap.String("event", event.Name()),
			zap.Error(err),
		)
	}
}

// Wait дожидается завершения уже запущенных обработчиков.
func (b *Bus) Wait() {
	b.wg.Wait()
}
