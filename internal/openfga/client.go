package openfga

import (
	"context"
	"fmt"
	"log/slog"

	"echoscribe/internal/config"

	"github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// tuple is a single (user, relation, object) triple in the store.
type tuple struct {
	User     string
	Relation string
	Object   string
}

// Client wraps the OpenFGA SDK. Disabled is the development default: tuple
// writes are no-ops and every check answers false, as if the store were
// empty. Owners keep access through the owner-scoped database path, which
// never consults this client; only share grants stop working.
type Client struct {
	fga     *client.OpenFgaClient
	logger  *slog.Logger
	enabled bool
	cfg     config.OpenFGAConfig
}

func NewClient(cfg config.OpenFGAConfig, logger *slog.Logger) (*Client, error) {
	if !cfg.Enabled {
		logger.Info("OpenFGA is disabled, recording shares are unavailable")
		return &Client{logger: logger, cfg: cfg}, nil
	}

	fga, err := client.NewSdkClient(&client.ClientConfiguration{
		ApiHost: cfg.APIHost,
		StoreId: cfg.StoreID,
		Credentials: &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{
				ApiToken: cfg.APIToken,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenFGA client: %w", err)
	}

	c := &Client{
		fga:     fga,
		logger:  logger,
		enabled: true,
		cfg:     cfg,
	}

	if err := c.verifyStore(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to verify OpenFGA store: %w", err)
	}

	logger.Info("OpenFGA client initialized", "store_id", cfg.StoreID, "model_id", cfg.ModelID)

	return c, nil
}

// verifyStore confirms the configured store exists and the authorization
// model matches before the first authorization decision depends on it.
func (c *Client) verifyStore(ctx context.Context) error {
	store, err := c.fga.GetStore(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to get store: %w", err)
	}
	if store.Id != c.cfg.StoreID {
		return fmt.Errorf("store ID mismatch: expected %s, got %s", c.cfg.StoreID, store.Id)
	}

	model, err := c.fga.ReadAuthorizationModel(ctx).Execute()
	if err != nil {
		return fmt.Errorf("failed to read authorization model: %w", err)
	}
	if model.AuthorizationModel.Id != c.cfg.ModelID {
		c.logger.Warn("Authorization model ID mismatch",
			"expected", c.cfg.ModelID,
			"actual", model.AuthorizationModel.Id)
	}

	return nil
}

// Check reports whether the tuple's relation holds, directly or via the
// model's relation rewrites. With the client disabled no tuples exist, so
// every check is a deny.
func (c *Client) Check(ctx context.Context, t tuple) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	resp, err := c.fga.Check(ctx).Body(client.ClientCheckRequest{
		User:     t.User,
		Relation: t.Relation,
		Object:   t.Object,
	}).Execute()
	if err != nil {
		c.logger.Error("OpenFGA check failed",
			"user", t.User, "relation", t.Relation, "object", t.Object, "error", err)
		return false, fmt.Errorf("openfga check: %w", err)
	}

	return resp.GetAllowed(), nil
}

// Write stores the tuple.
func (c *Client) Write(ctx context.Context, t tuple) error {
	if !c.enabled {
		return nil
	}

	_, err := c.fga.Write(ctx).Body(client.ClientWriteRequest{
		Writes: []client.ClientTupleKey{
			{User: t.User, Relation: t.Relation, Object: t.Object},
		},
	}).Execute()
	if err != nil {
		c.logger.Error("OpenFGA write failed",
			"user", t.User, "relation", t.Relation, "object", t.Object, "error", err)
		return fmt.Errorf("openfga write: %w", err)
	}

	return nil
}

// Delete removes the tuple.
func (c *Client) Delete(ctx context.Context, t tuple) error {
	if !c.enabled {
		return nil
	}

	_, err := c.fga.Write(ctx).Body(client.ClientWriteRequest{
		Deletes: []client.ClientTupleKeyWithoutCondition{
			{User: t.User, Relation: t.Relation, Object: t.Object},
		},
	}).Execute()
	if err != nil {
		c.logger.Error("OpenFGA delete failed",
			"user", t.User, "relation", t.Relation, "object", t.Object, "error", err)
		return fmt.Errorf("openfga delete: %w", err)
	}

	return nil
}
