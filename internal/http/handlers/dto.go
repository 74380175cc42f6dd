package handlers

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,emailshape"`
	Password string `json:"password" binding:"required,strongpassword"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,emailshape"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type CompleteRequest struct {
	Email string `json:"email" binding:"required,emailshape"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,emailshape"`
	Token string `json:"token" binding:"required,max=64"`
}

type CreateUserRequest struct {
	Name                string   `json:"name" binding:"required,min=2,max=100"`
	Email               string   `json:"email" binding:"required,emailshape"`
	Password            string   `json:"password" binding:"required,strongpassword"`
	Role                string   `json:"role"`
	AssignedResourceIDs []string `json:"assignedResourceIds"`
}

// UpdateUserRequest is a partial update; absent fields are left unchanged.
type UpdateUserRequest struct {
	Name                *string   `json:"name" binding:"omitempty,min=2,max=100"`
	Email               *string   `json:"email" binding:"omitempty,emailshape"`
	Password            *string   `json:"password" binding:"omitempty,strongpassword"`
	Role                *string   `json:"role"`
	AssignedResourceIDs *[]string `json:"assignedResourceIds"`
}

type CreateStaffRequest struct {
	Name                string   `json:"name" binding:"required,min=2,max=100"`
	Email               string   `json:"email" binding:"required,emailshape"`
	Role                string   `json:"role" binding:"required"`
	TempPassword        string   `json:"tempPassword" binding:"required,strongpassword"`
	AssignedResourceIDs []string `json:"assignedResourceIds"`
}
