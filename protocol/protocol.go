// Package protocol defines the tagged request/response records exchanged
// over a billboard server connection, and the codec that frames them.
package protocol

import (
	"github.com/billboardcp/billboard-server/billboard"
	"github.com/billboardcp/billboard-server/users"
)

// Command tags a request with the operation it asks for.
type Command string

const (
	CommandLogin           Command = "login"
	CommandLogout          Command = "logout"
	CommandUsers           Command = "users"
	CommandAddUser         Command = "add_user"
	CommandUpdateUser      Command = "update_user"
	CommandDeleteUser      Command = "delete_user"
	CommandBillboards      Command = "billboards"
	CommandGetBillboard    Command = "get_billboard"
	CommandAddBillboard    Command = "add_billboard"
	CommandEditBillboard   Command = "edit_billboard"
	CommandDeleteBillboard Command = "delete_billboard"
	CommandSchedules       Command = "schedules"
	CommandAddSchedule     Command = "add_schedule"
	CommandTest            Command = "test"
)

// Status tags a response with its outcome. NoPermission covers every
// authorization denial; UsernameExists is deliberately distinct so clients
// can render a meaningful conflict message.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusNoPermission       Status = "no_permission"
	StatusInvalidCredentials Status = "invalid_credentials"
	StatusUsernameExists     Status = "username_exists"
	StatusBadRequest         Status = "bad_request"
	StatusError              Status = "error"
)

// Request is one client message. Beyond the command tag every field is
// optional; Validate checks the combination required per command.
type Request struct {
	Command   Command              `json:"command" validate:"required"`
	Token     string               `json:"token,omitempty"`
	Username  string               `json:"username,omitempty"`
	Password  string               `json:"password,omitempty"`
	User      *users.User          `json:"user,omitempty"`
	Billboard *billboard.Billboard `json:"billboard,omitempty"`
	Schedule  *billboard.Schedule  `json:"schedule,omitempty"`
}

// Response is the single answer written per request.
type Response struct {
	Status     Status                `json:"status"`
	Command    Command               `json:"command,omitempty"`
	Token      string                `json:"token,omitempty"`
	Username   string                `json:"username,omitempty"`
	Permission string                `json:"permission,omitempty"`
	Users      []users.User          `json:"users,omitempty"`
	Billboards []billboard.Billboard `json:"billboards,omitempty"`
	Schedules  []billboard.Schedule  `json:"schedules,omitempty"`
	Content    []byte                `json:"content,omitempty"`
	Message    string                `json:"message,omitempty"`
}
