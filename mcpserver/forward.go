package mcpserver

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/mcpgate/observe"
	"github.com/jonwraymond/mcpgate/store"
)

// Subscriber is the source of resource updates. *store.Broadcaster
// implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, name string) (<-chan store.Update, string)
}

// ForwardUpdates relays updates published under each of uris to the MCP
// sessions subscribed to that URI. It blocks until ctx is done. Delivery is
// best effort: failures are logged and dropped.
func (s *Server) ForwardUpdates(ctx context.Context, src Subscriber, uris ...string) {
	var wg sync.WaitGroup
	for _, uri := range uris {
		updates, _ := src.Subscribe(ctx, uri)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range updates {
				s.notify(ctx, u)
			}
		}()
	}
	wg.Wait()
}

func (s *Server) notify(ctx context.Context, u store.Update) {
	err := s.mcp.ResourceUpdated(ctx, &mcp.ResourceUpdatedNotificationParams{URI: u.Name})
	if err != nil {
		s.logger.Warn(ctx, "resource update not delivered",
			observe.Field{Key: "uri", Value: u.Name},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	s.logger.Debug(ctx, "resource update sent",
		observe.Field{Key: "uri", Value: u.Name},
		observe.Field{Key: "value", Value: u.Value},
	)
}
