package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of role tags a user can hold and an assignment can target.
type Role string

const (
	RoleCEO      Role = "CEO"
	RoleAdmin    Role = "ADMIN"
	RoleCFO      Role = "CFO"
	RoleFrontend Role = "FRONTEND"
	RoleBackend  Role = "BACKEND"
	RoleOutreach Role = "OUTREACH"
	RoleDesigner Role = "DESIGNER"
	RoleDev      Role = "DEV"
	RoleIntern   Role = "INTERN"
	RolePartner  Role = "PARTNER"
	RoleClient   Role = "CLIENT"
	RoleStaff    Role = "STAFF"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleCEO,
	RoleAdmin,
	RoleCFO,
	RoleFrontend,
	RoleBackend,
	RoleOutreach,
	RoleDesigner,
	RoleDev,
	RoleIntern,
	RolePartner,
	RoleClient,
	RoleStaff,
}

// ManagementRoles may administer catalog items and assignments.
var ManagementRoles = []Role{RoleCEO, RoleAdmin, RoleCFO}

// RoleStyle holds the static presentation data for a role.
type RoleStyle struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// RoleStyles maps every role to its badge colour and icon.
var RoleStyles = map[Role]RoleStyle{
	RoleCEO:      {Color: "purple", Icon: "crown"},
	RoleAdmin:    {Color: "red", Icon: "shield"},
	RoleCFO:      {Color: "emerald", Icon: "banknote"},
	RoleFrontend: {Color: "blue", Icon: "layout"},
	RoleBackend:  {Color: "indigo", Icon: "server"},
	RoleOutreach: {Color: "orange", Icon: "megaphone"},
	RoleDesigner: {Color: "pink", Icon: "palette"},
	RoleDev:      {Color: "cyan", Icon: "code"},
	RoleIntern:   {Color: "yellow", Icon: "graduation-cap"},
	RolePartner:  {Color: "teal", Icon: "handshake"},
	RoleClient:   {Color: "green", Icon: "briefcase"},
	RoleStaff:    {Color: "gray", Icon: "user"},
}

// ParseRole normalises the input and checks it against the role enum.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Valid reports whether the role is a member of the enum.
func (r Role) Valid() bool {
	_, ok := RoleStyles[r]
	return ok
}

// Style returns the presentation data for the role, falling back to the staff style.
func (r Role) Style() RoleStyle {
	if style, ok := RoleStyles[r]; ok {
		return style
	}
	return RoleStyles[RoleStaff]
}

// IsManagement reports whether the role may administer assignments.
func (r Role) IsManagement() bool {
	for _, candidate := range ManagementRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
