package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/election-service/internal/api/dto"
	"github.com/spec-kit/election-service/internal/service"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

// VerificationHandler exposes the two-factor verification endpoints.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Initiate handles POST /verification/initiate.
func (h *VerificationHandler) Initiate(c *fiber.Ctx) error {
	var req dto.InitiateVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.InvitationToken == "" {
		return apperrors.NewValidationError("invitation_token required", nil)
	}

	result, err := h.verification.InitiateVerification(c.UserContext(), req.InvitationToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.CodeIssuedResponse{
		MaskedEmail:       result.MaskedEmail,
		AttemptsRemaining: result.AttemptsRemaining,
		CodeExpiresAt:     result.CodeExpiresAt,
	}})
}

// Verify handles POST /verification/verify.
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.InvitationToken == "" || req.VoterID == "" || req.Code == "" {
		return apperrors.NewValidationError("invitation_token, voter_id, code required", nil)
	}

	grant, err := h.verification.VerifyCredentials(c.UserContext(), req.InvitationToken, req.VoterID, req.Code)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.AccessGrantResponse{
		AccessToken: grant.AccessToken,
		ExpiresAt:   grant.ExpiresAt,
	}})
}

// Resend handles POST /verification/resend.
func (h *VerificationHandler) Resend(c *fiber.Ctx) error {
	var req dto.ResendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.InvitationToken == "" {
		return apperrors.NewValidationError("invitation_token required", nil)
	}

	result, err := h.verification.ResendCode(c.UserContext(), req.InvitationToken)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.CodeIssuedResponse{
		MaskedEmail:       result.MaskedEmail,
		AttemptsRemaining: result.AttemptsRemaining,
		CodeExpiresAt:     result.CodeExpiresAt,
	}})
}
