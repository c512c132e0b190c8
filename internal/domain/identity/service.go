package identity

import "context"

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) Create(ctx context.Context, tenantID string, input CreateUserInput) (User, error) {
	if input.ManagerID != "" {
		// a fresh user cannot be on the chain yet, but the manager must exist
		if _, err := s.Store.GetUser(ctx, tenantID, input.ManagerID); err != nil {
			return User{}, err
		}
	}
	return s.Store.CreateUser(ctx, tenantID, input)
}

func (s *Service) Get(ctx context.Context, tenantID, userID string) (User, error) {
	return s.Store.GetUser(ctx, tenantID, userID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter UserFilter, limit, offset int) ([]User, error) {
	return s.Store.ListUsers(ctx, tenantID, filter, limit, offset)
}

// Update patches user fields. A manager change is checked against the
// reporting forest first: an assignment that would close a loop is
// rejected with ErrManagerCycle.
func (s *Service) Update(ctx context.Context, tenantID, userID string, input UpdateUserInput) (User, error) {
	if input.ManagerID != nil && *input.ManagerID != "" {
		if _, err := s.Store.GetUser(ctx, tenantID, *input.ManagerID); err != nil {
			return User{}, err
		}
		cyclic, err := WouldCreateCycle(ctx, userID, *input.ManagerID, s.Store.ManagerID)
		if err != nil {
			return User{}, err
		}
		if cyclic {
			return User{}, ErrManagerCycle
		}
	}
	return s.Store.UpdateUser(ctx, tenantID, userID, input)
}

func (s *Service) Delete(ctx context.Context, tenantID, userID string) error {
	return s.Store.SoftDeleteUser(ctx, tenantID, userID)
}

func (s *Service) Subordinates(ctx context.Context, tenantID, managerID string) ([]User, error) {
	return s.Store.Subordinates(ctx, tenantID, managerID)
}

func (s *Service) Roles(ctx context.Context, tenantID string) ([]Role, error) {
	return s.Store.ListRoles(ctx, tenantID)
}
