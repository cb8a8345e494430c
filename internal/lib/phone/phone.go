// Package phone приводит телефонные номера к каноническому виду E.164.
// Помимо общей валидации формата проверяется принадлежность кода страны
// настроенному списку поддерживаемых регионов и мобильный тип номера.
package phone

import (
	"errors"
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

var (
	// ErrInvalidFormat возвращается для нераспознаваемых или невалидных номеров.
	ErrInvalidFormat = errors.New("invalid phone number")

	// ErrUnsupportedRegion возвращается для номеров с кодом страны вне списка поддерживаемых.
	ErrUnsupportedRegion = errors.New("unsupported calling code")

	// ErrNotMobile возвращается для стационарных и прочих немобильных номеров.
	ErrNotMobile = errors.New("not a mobile number")
)

// Config задаёт список поддерживаемых кодов стран и регион по умолчанию.
type Config struct {
	AllowedCallingCodes []int  `yaml:"allowed_calling_codes" env-default:"7,86"`
	DefaultRegion       string `yaml:"default_region" env-default:"RU"`
}

// Normalizer валидирует и канонизирует телефонные номера.
type Normalizer struct {
	allowed       map[int]struct{}
	defaultRegion string
}

// NewNormalizer создаёт Normalizer. Пустой список кодов означает,
// что разрешены любые страны.
func NewNormalizer(cfg Config) *Normalizer {
	allowed := make(map[int]struct{}, len(cfg.AllowedCallingCodes))
	for _, code := range cfg.AllowedCallingCodes {
		allowed[code] = struct{}{}
	}
	return &Normalizer{
		allowed:       allowed,
		defaultRegion: cfg.DefaultRegion,
	}
}

// Normalize разбирает номер в любом написании и возвращает каноническую
// форму E.164, например +8613800138000. Пробелы, скобки и дефисы не влияют
// на результат.
func (n *Normalizer) Normalize(raw string) (string, error) {
	const op = "phone.Normalize"

	num, err := phonenumbers.Parse(raw, n.defaultRegion)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidFormat)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidFormat)
	}

	if len(n.allowed) > 0 {
		if _, ok := n.allowed[int(num.GetCountryCode())]; !ok {
			return "", fmt.Errorf("%s: %w", op, ErrUnsupportedRegion)
		}
	}

	switch phonenumbers.GetNumberType(num) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
	default:
		return "", fmt.Errorf("%s: %w", op, ErrNotMobile)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
