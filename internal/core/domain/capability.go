package domain

import "github.com/google/uuid"

// Capability is the authorization claims object passed into administrative
// operations. The core checks these claims but never issues them; token
// minting belongs to the identity collaborator.
type Capability struct {
	ActorID          uuid.UUID
	ChapterID        string
	ManageElections  bool
	ApproveElections bool
}

func (c Capability) CanManage() bool {
	return c.ManageElections || c.ApproveElections
}

func (c Capability) CanApprove() bool {
	return c.ApproveElections
}
