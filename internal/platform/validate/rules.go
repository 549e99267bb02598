package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MsgRequired    = "Campo obrigatório"
	MsgOnlyLetters = "Precisa ser apenas letras"
	MsgMinLetters  = "Precisa de pelo menos 3 letras"
	MsgEmail       = "Email inválido"
	MsgPhone       = "Telefone inválido"
	MsgPassword    = "Precisa ter pelo menos um número, uma letra maiúscula, uma letra minúscula, um número e um símbolo"
	MsgPasswordLen = "Precisa de pelo menos 6 caracteres"
	MsgOnlyNumbers = "Apenas números"
	MsgOption      = "Selecione uma opção válida"
)

var (
	NamePattern  = regexp.MustCompile(`^[A-Za-z\x{00C0}-\x{00FF}]+(?: [A-Za-z\x{00C0}-\x{00FF}]+)*$`)
	EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	PhonePattern = regexp.MustCompile(`^\(?[1-9]{2}\)?[\s-]?(?:9[0-9]{4}|[2-5][0-9]{3})[\s-]?[0-9]{4}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

func blank(v string) bool { return strings.TrimSpace(v) == "" }

func Required(msg string) Rule {
	return func(v string, _ Values) string {
		if blank(v) {
			return msg
		}
		return ""
	}
}

// Pattern, like every rule below except Required, ignores empty values.
func Pattern(re *regexp.Regexp, msg string) Rule {
	return func(v string, _ Values) string {
		if v == "" || re.MatchString(v) {
			return ""
		}
		return msg
	}
}

func MinLength(n int, msg string) Rule {
	return func(v string, _ Values) string {
		if v == "" || utf8.RuneCountInString(v) >= n {
			return ""
		}
		return msg
	}
}

func MaxLength(n int, msg string) Rule {
	return func(v string, _ Values) string {
		if utf8.RuneCountInString(v) <= n {
			return ""
		}
		return msg
	}
}

// IntRange accepts whole numbers in [min, max]. Bounds are checked before
// integrality so "130.5" reports the max message.
func IntRange(min, max int, minMsg, maxMsg, nanMsg string) Rule {
	return func(v string, _ Values) string {
		if v == "" {
			return ""
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nanMsg
		}
		if f < float64(min) {
			return minMsg
		}
		if f > float64(max) {
			return maxMsg
		}
		if f != math.Trunc(f) {
			return nanMsg
		}
		return ""
	}
}

// Equals requires v to match the value of another field exactly.
func Equals(field, msg string) Rule {
	return func(v string, all Values) string {
		if v == all[field] {
			return ""
		}
		return msg
	}
}

func OneOf(msg string, options ...string) Rule {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o] = struct{}{}
	}
	return func(v string, _ Values) string {
		if v == "" {
			return ""
		}
		if _, ok := set[v]; ok {
			return ""
		}
		return msg
	}
}

// When applies rules only if pred holds for the whole form.
func When(pred func(Values) bool, rules ...Rule) Rule {
	return func(v string, all Values) string {
		if !pred(all) {
			return ""
		}
		for _, r := range rules {
			if msg := r(v, all); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// IsTrue is a When predicate for checkbox fields.
func IsTrue(field string) func(Values) bool {
	return func(all Values) bool {
		b, _ := strconv.ParseBool(all[field])
		return b
	}
}

func Func(fn func(v string, all Values) string) Rule { return fn }

// StrongPassword requires an upper case letter, a lower case letter, a digit
// and a symbol.
func StrongPassword(msg string) Rule {
	return func(v string, _ Values) string {
		if v == "" {
			return ""
		}
		var upper, lower, digit, symbol bool
		for _, r := range v {
			switch {
			case r >= 'A' && r <= 'Z':
				upper = true
			case r >= 'a' && r <= 'z':
				lower = true
			case r >= '0' && r <= '9':
				digit = true
			default:
				symbol = true
			}
		}
		if upper && lower && digit && symbol {
			return ""
		}
		return msg
	}
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// Shared field rule sets used by more than one form.

func NameRules() []Rule {
	return []Rule{Required(MsgRequired), Pattern(NamePattern, MsgOnlyLetters), MinLength(3, MsgMinLetters)}
}

func EmailRules() []Rule {
	return []Rule{Required(MsgRequired), Pattern(EmailPattern, MsgEmail)}
}

func PhoneRules() []Rule {
	return []Rule{Required(MsgRequired), Pattern(PhonePattern, MsgPhone)}
}

func PasswordRules() []Rule {
	return []Rule{Required(MsgRequired), StrongPassword(MsgPassword), MinLength(6, MsgPasswordLen)}
}
