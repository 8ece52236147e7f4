package blog

import "strings"

// SyncStatus статус синхронизации локальной записи с сервером
type SyncStatus string

const (
	StatusSynced  SyncStatus = "synced"
	StatusPending SyncStatus = "pending"
	StatusFailed  SyncStatus = "failed"
)

// Ref ссылка одной сущности на другую (например, comment.postId)
type Ref struct {
	Kind Kind
	ID   int64
}

// Entity описывает возможности, которые нужны общему конвейеру мутаций и движку
// синхронизации от конкретного типа записи. Методы With* возвращают копию.
type Entity[T any] interface {
	Kind() Kind
	Key() int64
	Status() SyncStatus
	Modified() int64
	WithKey(id int64) T
	WithSync(status SyncStatus, at int64) T
	// Match выполняет регистронезависимый поиск подстроки по текстовым полям.
	Match(query string) bool
	// Refs возвращает внешние ключи записи.
	Refs() []Ref
	// Remap заменяет временный идентификатор from на to в ключе или внешних ключах.
	Remap(kind Kind, from, to int64) (T, bool)
	// Payload возвращает тело запроса к серверу без локальных полей.
	Payload() any
}

// IsPlaceholder сообщает, является ли идентификатор временным клиентским.
func IsPlaceholder(id int64) bool {
	return id < 0
}

// Dangling возвращает первую ссылку записи на еще не подтвержденную сервером сущность.
func Dangling[T Entity[T]](e T) (Ref, bool) {
	for _, ref := range e.Refs() {
		if IsPlaceholder(ref.ID) {
			return ref, true
		}
	}
	return Ref{}, false
}

func contains(field, query string) bool {
	return strings.Contains(strings.ToLower(field), query)
}

func remoteID(id int64) int64 {
	if IsPlaceholder(id) {
		return 0
	}
	return id
}

// Post запись блога
type Post struct {
	ID         int64      `json:"id,omitempty" yaml:"id"`
	UserID     int64      `json:"userId" yaml:"userId"`
	Title      string     `json:"title" yaml:"title"`
	Body       string     `json:"body" yaml:"body"`
	SyncStatus SyncStatus `json:"syncStatus,omitempty" yaml:"syncStatus"`
	UpdatedAt  int64      `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

func (p Post) Kind() Kind { return KindPost }
func (p Post) Key() int64 { return p.ID }
func (p Post) Status() SyncStatus { return p.SyncStatus }
func (p Post) Modified() int64 { return p.UpdatedAt }

func (p Post) WithKey(id int64) Post {
	p.ID = id
	return p
}

func (p Post) WithSync(status SyncStatus, at int64) Post {
	p.SyncStatus = status
	p.UpdatedAt = at
	return p
}

func (p Post) Match(query string) bool {
	q := strings.ToLower(query)
	return contains(p.Title, q) || contains(p.Body, q)
}

func (p Post) Refs() []Ref {
	return []Ref{{Kind: KindUser, ID: p.UserID}}
}

func (p Post) Remap(kind Kind, from, to int64) (Post, bool) {
	changed := false
	if kind == KindPost && p.ID == from {
		p.ID = to
		changed = true
	}
	if kind == KindUser && p.UserID == from {
		p.UserID = to
		changed = true
	}
	return p, changed
}

func (p Post) Payload() any {
	return PostDTO{
		ID:     remoteID(p.ID),
		UserID: p.UserID,
		Title:  p.Title,
		Body:   p.Body,
	}
}

// Comment комментарий к записи
type Comment struct {
	ID         int64      `json:"id,omitempty" yaml:"id"`
	PostID     int64      `json:"postId" yaml:"postId"`
	Name       string     `json:"name" yaml:"name"`
	Email      string     `json:"email" yaml:"email"`
	Body       string     `json:"body" yaml:"body"`
	SyncStatus SyncStatus `json:"syncStatus,omitempty" yaml:"syncStatus"`
	UpdatedAt  int64      `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

func (c Comment) Kind() Kind { return KindComment }
func (c Comment) Key() int64 { return c.ID }
func (c Comment) Status() SyncStatus { return c.SyncStatus }
func (c Comment) Modified() int64 { return c.UpdatedAt }

func (c Comment) WithKey(id int64) Comment {
	c.ID = id
	return c
}

func (c Comment) WithSync(status SyncStatus, at int64) Comment {
	c.SyncStatus = status
	c.UpdatedAt = at
	return c
}

func (c Comment) Match(query string) bool {
	q := strings.ToLower(query)
	return contains(c.Email, q) || contains(c.Body, q)
}

func (c Comment) Refs() []Ref {
	return []Ref{{Kind: KindPost, ID: c.PostID}}
}

func (c Comment) Remap(kind Kind, from, to int64) (Comment, bool) {
	changed := false
	if kind == KindComment && c.ID == from {
		c.ID = to
		changed = true
	}
	if kind == KindPost && c.PostID == from {
		c.PostID = to
		changed = true
	}
	return c, changed
}

func (c Comment) Payload() any {
	return CommentDTO{
		ID:     remoteID(c.ID),
		PostID: c.PostID,
		Name:   c.Name,
		Email:  c.Email,
		Body:   c.Body,
	}
}

// User автор записей
type User struct {
	ID         int64      `json:"id,omitempty" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Email      string     `json:"email" yaml:"email"`
	Username   string     `json:"username" yaml:"username"`
	Website    string     `json:"website,omitempty" yaml:"website,omitempty"`
	SyncStatus SyncStatus `json:"syncStatus,omitempty" yaml:"syncStatus"`
	UpdatedAt  int64      `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

func (u User) Kind() Kind { return KindUser }
func (u User) Key() int64 { return u.ID }
func (u User) Status() SyncStatus { return u.SyncStatus }
func (u User) Modified() int64 { return u.UpdatedAt }

func (u User) WithKey(id int64) User {
	u.ID = id
	return u
}

func (u User) WithSync(status SyncStatus, at int64) User {
	u.SyncStatus = status
	u.UpdatedAt = at
	return u
}

func (u User) Match(query string) bool {
	q := strings.ToLower(query)
	return contains(u.Name, q) || contains(u.Email, q) || contains(u.Username, q)
}

func (u User) Refs() []Ref {
	return nil
}

func (u User) Remap(kind Kind, from, to int64) (User, bool) {
	if kind == KindUser && u.ID == from {
		u.ID = to
		return u, true
	}
	return u, false
}

func (u User) Payload() any {
	return UserDTO{
		ID:       remoteID(u.ID),
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Website:  u.Website,
	}
}
