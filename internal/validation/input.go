package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxNameLength  = 100
	MaxNotesLength = 2000
	MinPhoneLength = 5
	MaxPhoneLength = 20
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-()]*$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidatePhone проверяет номер телефона. Допускаются цифры, пробелы,
// дефисы, скобки и ведущий плюс.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("телефон обязателен")
	}
	if err := ValidateLength("телефон", phone, MinPhoneLength, MaxPhoneLength); err != nil {
		return err
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("телефон содержит недопустимые символы")
	}
	return nil
}

// ValidateName проверяет имя клиента.
func ValidateName(name string) error {
	if err := ValidateNonEmpty("имя", name); err != nil {
		return err
	}
	return ValidateLength("имя", strings.TrimSpace(name), 1, MaxNameLength)
}

// ValidateNotes проверяет необязательный комментарий к заявке.
func ValidateNotes(notes *string) error {
	if notes == nil || *notes == "" {
		return nil
	}
	return ValidateLength("комментарий", *notes, 0, MaxNotesLength)
}
