package adminusers

type UserView struct {
	ID       int64  `bun:"id"`
	Username string `bun:"username"`
	Role     string `bun:"role"`
}

type PageData struct {
	Users        []UserView
	Status       string
	ErrorMessage string
}
