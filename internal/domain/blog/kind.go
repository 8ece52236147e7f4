package blog

import "fmt"

// Kind тег типа сущности. Используется в очереди операций и при диспетчеризации replay.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindUser    Kind = "user"
)

// Kinds перечисляет все известные типы сущностей в порядке зависимостей.
var Kinds = []Kind{KindUser, KindPost, KindComment}

func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindComment, KindUser:
		return true
	}
	return false
}

// Collection возвращает имя коллекции на сервере и имя локальной таблицы.
func (k Kind) Collection() string {
	switch k {
	case KindPost:
		return "posts"
	case KindComment:
		return "comments"
	case KindUser:
		return "users"
	}
	return ""
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind разбирает тег типа, принимая как единственное, так и множественное число.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == string(k) || s == k.Collection() {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
