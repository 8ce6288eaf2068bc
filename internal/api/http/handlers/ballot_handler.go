package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/election-service/internal/api/dto"
	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/service"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

// BallotHandler exposes ballot submission.
type BallotHandler struct {
	ballots *service.BallotService
}

// NewBallotHandler constructs handler.
func NewBallotHandler(ballots *service.BallotService) *BallotHandler {
	return &BallotHandler{ballots: ballots}
}

// Submit handles POST /ballots.
func (h *BallotHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitBallotRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AccessToken == "" {
		return apperrors.NewValidationError("access_token required", nil)
	}
	if len(req.Selections) == 0 {
		return apperrors.NewValidationError("selections required", nil)
	}

	selections := make([]domain.Selection, len(req.Selections))
	for i, sel := range req.Selections {
		if sel.PortfolioID == "" {
			return apperrors.NewValidationError("selection missing portfolio_id", nil)
		}
		selections[i] = domain.Selection{PortfolioID: sel.PortfolioID, CandidateID: sel.CandidateID}
	}

	receipt, err := h.ballots.SubmitBallot(c.UserContext(), req.AccessToken, selections)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.BallotReceiptResponse{
		ElectionID: receipt.ElectionID,
		VoteCount:  receipt.VoteCount,
		CastAt:     receipt.CastAt,
	}})
}
