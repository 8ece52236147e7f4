package blog

// Patch частичное изменение записи. Apply возвращает объединенную копию.
type Patch[T any] interface {
	Apply(T) T
}

// PatchFunc позволяет использовать обычную функцию как Patch.
type PatchFunc[T any] func(T) T

func (f PatchFunc[T]) Apply(v T) T {
	return f(v)
}

// PostPatch изменяет только заданные (не nil) поля записи
type PostPatch struct {
	UserID *int64  `json:"userId,omitempty"`
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
}

func (p PostPatch) Apply(post Post) Post {
	if p.UserID != nil {
		post.UserID = *p.UserID
	}
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Body != nil {
		post.Body = *p.Body
	}
	return post
}

// CommentPatch изменяет только заданные поля комментария
type CommentPatch struct {
	PostID *int64  `json:"postId,omitempty"`
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Body   *string `json:"body,omitempty"`
}

func (p CommentPatch) Apply(c Comment) Comment {
	if p.PostID != nil {
		c.PostID = *p.PostID
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	return c
}

// UserPatch изменяет только заданные поля пользователя
type UserPatch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Website  *string `json:"website,omitempty"`
}

func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	return u
}
