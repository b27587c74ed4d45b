// Package config contains the phase-transition packets of the
// configuration state (1.20.2+).
package config

import (
	"io"

	"github.com/xenoncommunity/xenon/pkg/proto"
)

// StartUpdate is sent by a server in play state to move
// the client back into the configuration state.
type StartUpdate struct{}

func (StartUpdate) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (StartUpdate) Decode(*proto.PacketContext, io.Reader) error { return nil }

// AcknowledgeConfiguration is the client's answer to StartUpdate.
type AcknowledgeConfiguration struct{}

func (AcknowledgeConfiguration) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (AcknowledgeConfiguration) Decode(*proto.PacketContext, io.Reader) error { return nil }

// FinishedUpdate ends the configuration state in both directions.
type FinishedUpdate struct{}

func (FinishedUpdate) Encode(*proto.PacketContext, io.Writer) error { return nil }
func (FinishedUpdate) Decode(*proto.PacketContext, io.Reader) error { return nil }

var (
	_ proto.Packet = (*StartUpdate)(nil)
	_ proto.Packet = (*AcknowledgeConfiguration)(nil)
	_ proto.Packet = (*FinishedUpdate)(nil)
)
