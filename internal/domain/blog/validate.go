package blog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
)

var ErrInvalid = errors.New("invalid resource")

// Validate проверяет тело записи перед сохранением на сервере
func (d PostDTO) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", ErrInvalid)
	}
	return nil
}

// Validate проверяет тело комментария перед сохранением на сервере
func (d CommentDTO) Validate() error {
	return validateEmail(d.Email)
}

// Validate проверяет тело пользователя. Пустые необязательные поля допустимы.
func (d UserDTO) Validate() error {
	if err := validateUsername(d.Username); err != nil {
		return err
	}
	if err := validateEmail(d.Email); err != nil {
		return err
	}
	return validateWebsite(d.Website)
}

func validateUsername(username string) error {
	if username == "" {
		return nil
	}

	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen {
		return fmt.Errorf("%w: username must be at least %d characters", ErrInvalid, MinUsernameLen)
	}
	if n > MaxUsernameLen {
		return fmt.Errorf("%w: username must be at most %d characters", ErrInvalid, MaxUsernameLen)
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return fmt.Errorf("%w: username can only contain letters, digits, '_', '-', '.'", ErrInvalid)
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\n") {
		return fmt.Errorf("%w: malformed email %q", ErrInvalid, email)
	}
	return nil
}

func validateWebsite(website string) error {
	if website == "" {
		return nil
	}

	// Сайт без схемы (example.com) тоже допустим
	raw := website
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: malformed website %q", ErrInvalid, website)
	}
	return nil
}
