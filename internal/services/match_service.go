package services

import (
	"context"
	"fmt"

	"github.com/Idosegev23/homeruncms-sub000/internal/matching"
)

// IMatchService ranks properties for customers and customers for properties.
type IMatchService interface {
	MatchesForCustomer(ctx context.Context, customerID string, limit int) ([]matching.RankedProperty, error)
	MatchesForProperty(ctx context.Context, propertyID string, limit int) ([]matching.RankedCustomer, error)
	ScorePair(ctx context.Context, customerID, propertyID string) (*matching.Result, error)
}

// matchService implements IMatchService over the pure scorer.
type matchService struct {
	scorer     *matching.Scorer
	customers  ICustomerService
	properties IPropertyService
}

// NewMatchService creates a new MatchService.
func NewMatchService(scorer *matching.Scorer, customers ICustomerService, properties IPropertyService) IMatchService {
	return &matchService{scorer: scorer, customers: customers, properties: properties}
}

// MatchesForCustomer scores the whole property inventory for one customer.
func (s *matchService) MatchesForCustomer(ctx context.Context, customerID string, limit int) ([]matching.RankedProperty, error) {
	customer, err := s.customers.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("match: load customer %s: %w", customerID, err)
	}
	properties, err := s.properties.ListProperties(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("match: load properties: %w", err)
	}
	return s.scorer.RankProperties(*customer, properties, limit), nil
}

// MatchesForProperty scores every customer against one property.
func (s *matchService) MatchesForProperty(ctx context.Context, propertyID string, limit int) ([]matching.RankedCustomer, error) {
	property, err := s.properties.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("match: load property %s: %w", propertyID, err)
	}
	customers, err := s.customers.ListCustomers(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("match: load customers: %w", err)
	}
	return s.scorer.RankCustomers(*property, customers, limit), nil
}

// ScorePair scores a single customer/property pair.
func (s *matchService) ScorePair(ctx context.Context, customerID, propertyID string) (*matching.Result, error) {
	customer, err := s.customers.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("match: load customer %s: %w", customerID, err)
	}
	property, err := s.properties.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("match: load property %s: %w", propertyID, err)
	}
	res := s.scorer.Score(*customer, *property)
	return &res, nil
}
