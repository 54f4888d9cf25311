package handler

import (
	"time"

	"github.com/kanrihq/kanri-backend/internal/model"
)

// memberResponse is the outward shape of a member. The password hash never
// leaves the server.
type memberResponse struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Gender    string    `json:"gender"`
	ImageURL  string    `json:"imageUrl"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMemberResponse(m model.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		FullName:  m.FullName,
		Phone:     m.Phone,
		Address:   m.Address,
		Gender:    m.Gender,
		ImageURL:  m.ImageURL,
		Role:      m.RoleName,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
