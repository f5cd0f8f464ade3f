package model

import "time"

// User is a member of the neighborhood as returned by the backend.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	BlockNo    string    `json:"block_no"`
	HouseNo    string    `json:"house_no"`
	DateJoined time.Time `json:"date_joined"`
}

// AuthResponse is returned by the login and signup endpoints.
type AuthResponse struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// LoginForm holds the login page fields.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupForm holds the account creation fields.
type SignupForm struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	BlockNo         string `json:"block_no" validate:"required"`
	HouseNo         string `json:"house_no" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}
