package models

// User is the identity returned by the auth endpoints.
type User struct {
	UserID    string `json:"user_id" msgpack:"user_id"`
	Username  string `json:"username" msgpack:"username"`
	Email     string `json:"email,omitempty" msgpack:"email"`
	CreatedAt string `json:"created_at,omitempty" msgpack:"created_at"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// Registration is the register request body.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// PasswordChange is the change-password request body.
type PasswordChange struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Message is the generic {message} acknowledgement body.
type Message struct {
	Message string `json:"message"`
}
