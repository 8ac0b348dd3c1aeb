package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/logger"
)

const (
	// InfoPath is the serverinfo endpoint, relative to a server's base URL.
	InfoPath = "/ocs/v2.php/apps/serverinfo/api/v1/info?format=json"

	// TokenHeader carries the serverinfo token.
	TokenHeader = "NC-Token"
)

// Fetch performs exactly one request against server's serverinfo endpoint.
// Errors are *errors.Error values coded HTTP, CONNECTION, TIMEOUT,
// PROTOCOL or API, except when ctx is cancelled.
func (c *DefaultClient) Fetch(ctx context.Context, server config.ServerConfig) (*Payload, error) {
	log := logger.WithComponent("client")
	start := time.Now()

	body, err := c.doGet(ctx, server, InfoPath)
	if err != nil {
		log.Debug().Err(err).Str("server", server.SourcePath).Str("code", errors.CodeOf(err)).Msg("fetch failed")
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	payload, err := decodePayload(body)
	if err != nil {
		log.Debug().Err(err).Str("server", server.SourcePath).Msg("fetch rejected")
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	log.Debug().
		Str("server", server.SourcePath).
		Int("bytes", len(body)).
		Dur("took", time.Since(start)).
		Msg("fetch ok")
	return payload, nil
}

// decodePayload parses body and validates the OCS envelope status.
func decodePayload(body []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrProtocol,
			fmt.Sprintf("Invalid response: %v", err), "Is this a Nextcloud server?")
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrProtocol,
			"Invalid response: expected a JSON object", "Is this a Nextcloud server?")
	}

	p := &Payload{Tree: obj, Body: body}
	if meta := p.Meta(); meta.Status != "ok" {
		msg := meta.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, errors.New(errors.ErrAPI, msg, "")
	}
	return p, nil
}
