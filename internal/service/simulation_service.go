package service

import (
	"context"
	"errors"
	"strings"

	"family-finance/internal/loan"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/repository"
)

// SimulationInput names and describes a loan to keep.
type SimulationInput struct {
	Name string `json:"name"`
	loan.Terms
}

// SimulationService computes and stores loan simulations.
type SimulationService struct {
	sims *repository.SimulationRepository
}

func NewSimulationService(sims *repository.SimulationRepository) *SimulationService {
	return &SimulationService{sims: sims}
}

// Preview computes a schedule without saving anything.
func (s *SimulationService) Preview(terms loan.Terms) (loan.Schedule, error) {
	schedule, err := loan.Compute(terms)
	if err != nil {
		return loan.Schedule{}, termsError(err)
	}
	return schedule, nil
}

func (s *SimulationService) List(ctx context.Context, user *model.User) ([]model.SavedSimulation, error) {
	return s.sims.ListByUser(ctx, user.ID)
}

func (s *SimulationService) Create(ctx context.Context, user *model.User, in SimulationInput) (*model.SavedSimulation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if err := in.Terms.Validate(); err != nil {
		return nil, termsError(err)
	}
	system, _ := loan.ParseSystem(string(in.System))
	sim := &model.SavedSimulation{
		UserID:             user.ID,
		Name:               name,
		LoanAmount:         money.FromFloat(in.Principal),
		InterestRateAnnual: in.AnnualRate,
		TermMonths:         in.Months,
		System:             string(system),
	}
	if err := s.sims.Create(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

func (s *SimulationService) Delete(ctx context.Context, user *model.User, id string) error {
	return s.sims.Delete(ctx, user.ID, id)
}

// Schedule recomputes the schedule of a saved simulation.
func (s *SimulationService) Schedule(ctx context.Context, user *model.User, id string) (loan.Schedule, error) {
	sim, err := s.sims.FindByID(ctx, user.ID, id)
	if err != nil {
		return loan.Schedule{}, err
	}
	return s.Preview(loan.Terms{
		Principal:  sim.LoanAmount.Float(),
		AnnualRate: sim.InterestRateAnnual,
		Months:     sim.TermMonths,
		System:     loan.System(sim.System),
	})
}

func termsError(err error) error {
	switch {
	case errors.Is(err, loan.ErrInvalidPrincipal):
		return invalid("loanAmount", "%s", err)
	case errors.Is(err, loan.ErrInvalidTerm):
		return invalid("termMonths", "%s", err)
	case errors.Is(err, loan.ErrInvalidRate):
		return invalid("interestRateAnnual", "%s", err)
	default:
		return invalid("system", "%s", err)
	}
}
