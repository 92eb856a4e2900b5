package contract

import (
	"context"
	"errors"
	"fmt"

	"abo/internal/logger"
	"abo/internal/refcode"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxConflictRetries bounds regeneration after the store rejected a code
// that the oracle reported as free (concurrent creation).
const maxConflictRetries = 5

// Creator stores new contracts under a freshly generated reference code.
type Creator struct {
	repo  services.Repository
	codec *refcode.Codec
	log   zerolog.Logger
}

// NewCreator creates a Creator. A nil codec selects refcode.Default.
func NewCreator(repo services.Repository, codec *refcode.Codec) *Creator {
	if codec == nil {
		codec = refcode.Default
	}
	return &Creator{
		repo:  repo,
		codec: codec,
		log:   logger.WithComponent("contract-creator"),
	}
}

// Create validates c, assigns an ID and a unique reference code when it has
// none, and saves it. A contract that already carries a valid code keeps it.
func (cr *Creator) Create(ctx context.Context, c *models.Contract) error {
	const op = "Create"

	if err := Validate(c); err != nil {
		return fmt.Errorf("%s: invalid contract: %w", op, err)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	if c.RefID != "" {
		if !cr.codec.Validate(c.RefID) {
			return fmt.Errorf("%s: reference code %q has an invalid checksum", op, c.RefID)
		}
		if err := cr.repo.SaveContract(ctx, c); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	for attempt := 1; ; attempt++ {
		code, err := cr.codec.Generate(ctx, cr.repo.ReferenceExists)
		if err != nil {
			return fmt.Errorf("%s: generate reference code: %w", op, err)
		}
		c.RefID = code

		err = cr.repo.SaveContract(ctx, c)
		if err == nil {
			cr.log.Info().
				Str("ref_id", code).
				Str("contract_id", c.ID.String()).
				Msg("Contract created")
			return nil
		}
		c.RefID = ""
		if !errors.Is(err, services.ErrDuplicateReference) || attempt >= maxConflictRetries {
			return fmt.Errorf("%s: %w", op, err)
		}

		cr.log.Warn().
			Str("ref_id", code).
			Int("attempt", attempt).
			Msg("Reference code taken concurrently, regenerating")
	}
}
