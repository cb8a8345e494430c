package password

import (
	"math"
	"strings"
	"unicode"
)

// PolicyConfig задаёт требования к сложности пароля.
type PolicyConfig struct {
	MinLength      int     `yaml:"min_length" env-default:"8"`
	MaxLength      int     `yaml:"max_length" env-default:"72"`
	RequireUpper   bool    `yaml:"require_upper" env-default:"true"`
	RequireLower   bool    `yaml:"require_lower" env-default:"true"`
	RequireDigit   bool    `yaml:"require_digit" env-default:"true"`
	RequireSymbol  bool    `yaml:"require_symbol" env-default:"false"`
	MinEntropyBits float64 `yaml:"min_entropy_bits" env-default:"40"`
}

// PolicyError перечисляет все нарушенные правила политики, а не только первое,
// чтобы клиент мог показать пользователю весь список сразу.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Violations, "; ")
}

// Policy проверяет пароли на соответствие настроенным правилам.
type Policy struct {
	cfg PolicyConfig
}

// Слабые слова, встречающиеся в типовых паролях. Сравнение без учёта регистра.
var weakWords = []string{
	"password", "qwerty", "admin", "letmein", "welcome", "iloveyou",
	"dragon", "monkey", "football", "123456",
}

// NewPolicy создаёт Policy с указанной конфигурацией.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{cfg: cfg}
}

// Validate возвращает nil, если пароль удовлетворяет политике,
// иначе *PolicyError со списком всех нарушений.
func (p *Policy) Validate(password string) error {
	var violations []string

	if len(password) < p.cfg.MinLength {
		violations = append(violations, "too short")
	}
	// bcrypt не учитывает байты дальше 72-го, более длинные пароли отклоняем.
	if len(password) > p.cfg.MaxLength {
		violations = append(violations, "too long")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if p.cfg.RequireUpper && !hasUpper {
		violations = append(violations, "missing uppercase letter")
	}
	if p.cfg.RequireLower && !hasLower {
		violations = append(violations, "missing lowercase letter")
	}
	if p.cfg.RequireDigit && !hasDigit {
		violations = append(violations, "missing digit")
	}
	if p.cfg.RequireSymbol && !hasSymbol {
		violations = append(violations, "missing symbol")
	}

	lowered := strings.ToLower(password)
	for _, w := range weakWords {
		if strings.Contains(lowered, w) {
			violations = append(violations, "contains a common weak word")
			break
		}
	}
	if repeatedRun(password, 4) {
		violations = append(violations, "contains repeated characters")
	}
	if sequentialDigits(password, 4) {
		violations = append(violations, "contains sequential digits")
	}

	if entropyBits(password, hasUpper, hasLower, hasDigit, hasSymbol) < p.cfg.MinEntropyBits {
		violations = append(violations, "not enough entropy")
	}

	if len(violations) > 0 {
		return &PolicyError{Violations: violations}
	}
	return nil
}

// entropyBits оценивает энтропию Шеннона по присутствующим классам символов:
// длина * log2(размер алфавита).
func entropyBits(password string, upper, lower, digit, symbol bool) float64 {
	pool := 0
	if upper {
		pool += 26
	}
	if lower {
		pool += 26
	}
	if digit {
		pool += 10
	}
	if symbol {
		pool += 33
	}
	if pool == 0 {
		return 0
	}
	return float64(len([]rune(password))) * math.Log2(float64(pool))
}

// repeatedRun сообщает, есть ли в пароле n одинаковых символов подряд.
func repeatedRun(password string, n int) bool {
	run := 0
	var prev rune
	for i, r := range password {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// sequentialDigits сообщает, есть ли в пароле n последовательных цифр
// по возрастанию или убыванию, например 1234 или 8765.
func sequentialDigits(password string, n int) bool {
	asc, desc := 1, 1
	var prev rune
	for i, r := range password {
		if i > 0 && unicode.IsDigit(r) && unicode.IsDigit(prev) {
			switch r - prev {
			case 1:
				asc++
				desc = 1
			case -1:
				desc++
				asc = 1
			default:
				asc, desc = 1, 1
			}
		} else {
			asc, desc = 1, 1
		}
		if asc >= n || desc >= n {
			return true
		}
		prev = r
	}
	return false
}
