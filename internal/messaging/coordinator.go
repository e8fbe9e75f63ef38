package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Coordinator moves connections in and out of the durable conversation groups.
type Coordinator struct {
	logger *zap.Logger
	groups persistence.GroupStore

	// creations collapses concurrent creators of the same group name into
	// one insert; different names never contend.
	creations singleflight.Group
}

func NewCoordinator(logger *zap.Logger, groups persistence.GroupStore) *Coordinator {
	return &Coordinator{
		logger: logger,
		groups: groups,
	}
}

// GetGroup returns an empty group when the conversation has never been opened.
func (c *Coordinator) GetGroup(ctx context.Context, groupName string) (chat.Group, error) {
	group, err := c.groups.GetGroup(ctx, groupName)
	if errors.Is(err, persistence.ErrNotFound) {
		return chat.Group{Name: groupName, Connections: []chat.Connection{}}, nil
	}

	return group, err
}

func (c *Coordinator) JoinGroup(ctx context.Context, connection chat.Connection, groupName string) (chat.Group, error) {
	err := c.ensureGroup(ctx, groupName)
	if err != nil {
		c.logger.Error("failed to create group",
			zap.String("group", groupName),
			zap.Error(err))

		return chat.Group{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrGroupJoin, err)
	}

	group, err := c.groups.AddConnection(ctx, groupName, connection)
	if err != nil {
		c.logger.Error("failed to add connection to group",
			zap.String("group", groupName),
			zap.String("connectionId", connection.ConnectionId),
			zap.Error(err))

		return chat.Group{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrGroupJoin, err)
	}

	return group, nil
}

// LeaveGroup returns the group as it stands after the connection was removed.
func (c *Coordinator) LeaveGroup(ctx context.Context, connectionId string) (chat.Group, error) {
	group, err := c.groups.RemoveConnection(ctx, connectionId)
	if errors.Is(err, persistence.ErrNotFound) {
		return chat.Group{}, ierr.Wrap(ierr.ErrorCodeNotFound, chat.ErrGroupLeave, err)
	}
	if err != nil {
		return chat.Group{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrGroupLeave, err)
	}

	return group, nil
}

// Reset drops memberships left behind by a previous process. Presence lives
// in memory only, so none of them can still be open.
func (c *Coordinator) Reset(ctx context.Context) error {
	cleared, err := c.groups.ClearConnections(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear group memberships: %w", err)
	}

	if cleared > 0 {
		c.logger.Info("stale group memberships cleared", zap.Int("groups", cleared))
	}

	return nil
}

func (c *Coordinator) ensureGroup(ctx context.Context, groupName string) error {
	_, err := c.groups.GetGroup(ctx, groupName)
	if err == nil {
		return nil
	}

	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	// The shared call must not fail because the first caller went away.
	createCtx := context.WithoutCancel(ctx)

	_, err, _ = c.creations.Do(groupName, func() (any, error) {
		group, err := c.groups.InsertGroup(createCtx, groupName)
		if errors.Is(err, persistence.ErrAlreadyExists) {
			return c.groups.GetGroup(createCtx, groupName)
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info("group created", zap.String("group", groupName))

		return group, nil
	})

	return err
}
