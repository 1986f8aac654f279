package customvalidator

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"

	"petro-planning/internal/entities"
)

// RegisterCustomValidations регистрирует доменные правила в экземпляре валидатора.
func RegisterCustomValidations(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"equipment_status": isEquipmentStatus,
		"activity_type":    isActivityType,
		"plan_type":        isPlanType,
		"plan_status":      isPlanStatus,
		"phone":            isPhoneNumber,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// New - валидатор с уже зарегистрированными правилами.
func New() *validator.Validate {
	v := validator.New()
	registerNullTypes(v)
	if err := RegisterCustomValidations(v); err != nil {
		panic(err)
	}
	return v
}

func stringValue(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return field.String(), true
	case reflect.Ptr:
		if field.IsNil() {
			return "", false
		}
		return field.Elem().String(), true
	}
	return "", false
}

// Принимает и устаревшие значения: они нормализуются позже в сервисе.
func isEquipmentStatus(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	if !ok {
		return true
	}
	_, err := entities.NormalizeEquipmentStatus(s)
	return err == nil
}

func isActivityType(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || entities.ActivityType(s).Valid()
}

func isPlanType(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || entities.PlanType(s).Valid()
}

func isPlanStatus(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || entities.PlanStatus(s).Valid()
}

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)

func isPhoneNumber(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || phoneRegex.MatchString(s)
}
