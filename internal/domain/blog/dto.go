package blog

// PostDTO тело запроса и ответа API для записи
type PostDTO struct {
	ID     int64  `json:"id,omitempty" doc:"Server-assigned identifier"`
	UserID int64  `json:"userId" minimum:"1" doc:"Author identifier"`
	Title  string `json:"title" maxLength:"512" doc:"Post title"`
	Body   string `json:"body" maxLength:"65536" doc:"Post body"`
}

// CommentDTO тело запроса и ответа API для комментария
type CommentDTO struct {
	ID     int64  `json:"id,omitempty" doc:"Server-assigned identifier"`
	PostID int64  `json:"postId" minimum:"1" doc:"Commented post identifier"`
	Name   string `json:"name" maxLength:"512" doc:"Comment subject"`
	Email  string `json:"email" maxLength:"320" doc:"Commenter email"`
	Body   string `json:"body" maxLength:"65536" doc:"Comment body"`
}

// UserDTO тело запроса и ответа API для пользователя
type UserDTO struct {
	ID       int64  `json:"id,omitempty" doc:"Server-assigned identifier"`
	Name     string `json:"name" maxLength:"256" doc:"Display name"`
	Email    string `json:"email" maxLength:"320" doc:"Contact email"`
	Username string `json:"username" maxLength:"128" doc:"Login name"`
	Website  string `json:"website,omitempty" maxLength:"512" doc:"Personal website"`
}

// Resource тело ресурса API, которому сервер назначает идентификатор.
type Resource[D any] interface {
	Identity() int64
	WithID(id int64) D
	Validate() error
}

func (d PostDTO) Identity() int64    { return d.ID }
func (d CommentDTO) Identity() int64 { return d.ID }
func (d UserDTO) Identity() int64    { return d.ID }

func (d PostDTO) WithID(id int64) PostDTO {
	d.ID = id
	return d
}

func (d CommentDTO) WithID(id int64) CommentDTO {
	d.ID = id
	return d
}

func (d UserDTO) WithID(id int64) UserDTO {
	d.ID = id
	return d
}
