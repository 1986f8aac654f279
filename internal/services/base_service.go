package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
)

const (
	equipmentCacheKeyPrefix = "equipment:"
	equipmentListKeyPrefix  = "equipment:list:"

	DefaultCacheTTL = 300 * time.Second
)

func equipmentCacheKey(id string) string { return equipmentCacheKeyPrefix + id }

// BaseService - кеш чтения оборудования (cache-aside). Ошибки кеша только
// логируются: запрос не должен падать из-за Redis.
type BaseService struct {
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewBaseService(cache repositories.CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) *BaseService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &BaseService{cache: cache, ttl: ttl, logger: logger}
}

// CacheGet получает данные из кэша
func (s *BaseService) CacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s == nil || s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("Ошибка чтения из кэша", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), dest); err != nil {
		s.logger.Warn("Повреждённая запись кэша", zap.String("key", key), zap.Error(err))
		return false
	}
	s.logger.Debug("Данные получены из кэша", zap.String("key", key))
	return true
}

// CacheSet сохраняет данные в кэш
func (s *BaseService) CacheSet(ctx context.Context, key string, data interface{}) {
	if s == nil || s.cache == nil {
		return
	}
	serialized, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("Не удалось сериализовать данные для кэша", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, serialized, s.ttl); err != nil {
		s.logger.Warn("Ошибка записи в кэш", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateEquipment сбрасывает карточку оборудования и все списки.
// Вызывается после каждой успешной мутации оборудования или его истории.
func (s *BaseService) InvalidateEquipment(ctx context.Context, ids ...string) {
	if s == nil || s.cache == nil {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, equipmentCacheKey(id))
		}
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("Ошибка инвалидации кэша оборудования", zap.Strings("ids", ids), zap.Error(err))
	}
	s.InvalidateEquipmentList(ctx)
}

func (s *BaseService) InvalidateEquipmentList(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.DelByPattern(ctx, equipmentListKeyPrefix+"*"); err != nil {
		s.logger.Warn("Ошибка инвалидации списков оборудования", zap.Error(err))
	}
}

// listCacheKey строит ключ списка из параметров запроса.
func listCacheKey(params interface{}) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("ключ кэша списка: %w", err)
	}
	return equipmentListKeyPrefix + string(raw), nil
}

// validateStruct прогоняет DTO через validator/v10 и переводит ошибки
// в ValidationError с перечнем полей.
func validateStruct(v *validator.Validate, i interface{}) error {
	if v == nil {
		return nil
	}
	err := v.Struct(i)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return apperrors.NewFieldValidationError("Ошибка валидации входных данных", fields)
}
