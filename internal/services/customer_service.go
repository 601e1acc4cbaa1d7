package services

import (
	"context"

	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

// CustomerService is a thin validation layer over customer storage.
type CustomerService struct {
	storage *storage.SQLiteRepository
}

func NewCustomerService(repo *storage.SQLiteRepository) *CustomerService {
	return &CustomerService{storage: repo}
}

func (s *CustomerService) Create(ctx context.Context, userID int64, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	id, err := s.storage.CreateCustomer(ctx, userID, c)
	if err != nil {
		return core.Customer{}, err
	}
	c.ID = id
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, userID, id int64) (core.Customer, error) {
	return s.storage.GetCustomer(ctx, userID, id)
}

func (s *CustomerService) List(ctx context.Context, userID int64) ([]core.Customer, error) {
	return s.storage.ListCustomers(ctx, userID)
}

func (s *CustomerService) Update(ctx context.Context, userID int64, c core.Customer) (core.Customer, error) {
	if err := c.Validate(); err != nil {
		return core.Customer{}, err
	}
	if err := s.storage.UpdateCustomer(ctx, userID, c); err != nil {
		return core.Customer{}, err
	}
	return s.storage.GetCustomer(ctx, userID, c.ID)
}

// Delete refuses to remove a customer still referenced by documents.
func (s *CustomerService) Delete(ctx context.Context, userID, id int64) error {
	return s.storage.DeleteCustomer(ctx, userID, id)
}
