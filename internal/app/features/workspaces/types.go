// internal/app/features/workspaces/types.go
package workspaces

import (
	"github.com/dalemusser/taskhub/internal/app/store/tasks"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// workspaceInput is the body of create and update.
type workspaceInput struct {
	Name        string `json:"name" validate:"required,max=255" label:"Name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
}

// updateWorkspaceInput allows an empty name, which keeps the current one.
// An absent description keeps the current one; "" clears it.
type updateWorkspaceInput struct {
	Name        string  `json:"name" validate:"max=255" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=2000" label:"Description"`
}

type changeRoleInput struct {
	RoleID   string `json:"roleId" validate:"required,objectid" label:"Role ID"`
	MemberID string `json:"memberId" validate:"required,objectid" label:"Member ID"`
}

type workspaceResponse struct {
	Message   string           `json:"message"`
	Workspace models.Workspace `json:"workspace"`
}

type workspaceListResponse struct {
	Message    string             `json:"message"`
	Workspaces []models.Workspace `json:"workspaces"`
}

type workspaceDetailsResponse struct {
	Message   string              `json:"message"`
	Workspace models.Workspace    `json:"workspace"`
	Members   []models.MemberView `json:"members"`
}

type membersResponse struct {
	Message string              `json:"message"`
	Members []models.MemberView `json:"members"`
	Roles   []models.Role       `json:"roles"`
}

type analyticsResponse struct {
	Message   string          `json:"message"`
	Analytics tasks.Analytics `json:"analytics"`
}

type memberResponse struct {
	Message string        `json:"message"`
	Member  models.Member `json:"member"`
}

type deleteResponse struct {
	Message string `json:"message"`
	// CurrentWorkspace is the caller's workspace after the delete; null
	// when the caller has no memberships left.
	CurrentWorkspace *primitive.ObjectID `json:"currentWorkspace"`
}
