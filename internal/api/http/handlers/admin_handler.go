package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/election-service/internal/api/dto"
	"github.com/spec-kit/election-service/internal/service"
)

// AdminHandler triggers lifecycle sweeps manually. The same sweeps run
// on the worker timer; these endpoints exist for operations and tests.
type AdminHandler struct {
	lifecycle *service.LifecycleService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(lifecycle *service.LifecycleService) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle}
}

// RunActivationSweep handles POST /admin/sweeps/activation.
func (h *AdminHandler) RunActivationSweep(c *fiber.Ctx) error {
	reports, err := h.lifecycle.RunActivationSweep(c.UserContext())
	if err != nil {
		return err
	}

	resp := dto.SweepResponse{Processed: []dto.SweepElectionResult{}}
	for _, r := range reports {
		result := dto.SweepElectionResult{
			ElectionID:         r.ElectionID,
			EligibleVoters:     r.EligibleVoters,
			CredentialsCreated: r.CredentialsCreated,
			RegistryDegraded:   r.RegistryDegraded,
		}
		if r.Dispatch != nil {
			result.InvitesSent = len(r.Dispatch.Sent)
			result.InvitesFailed = len(r.Dispatch.Failed)
		}
		resp.Processed = append(resp.Processed, result)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// RunClosureSweep handles POST /admin/sweeps/closure.
func (h *AdminHandler) RunClosureSweep(c *fiber.Ctx) error {
	reports, err := h.lifecycle.RunClosureSweep(c.UserContext())
	if err != nil {
		return err
	}

	resp := dto.SweepResponse{Processed: []dto.SweepElectionResult{}}
	for _, r := range reports {
		resp.Processed = append(resp.Processed, dto.SweepElectionResult{
			ElectionID:  r.ElectionID,
			VotesCast:   r.VotesCast,
			VotersUsed:  r.VotersUsed,
			VotersTotal: r.VotersTotal,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
