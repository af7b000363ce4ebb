package handler_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"filemanager/internal/model"
	"filemanager/internal/service"
)

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uint) (*model.UserView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserView), args.Error(1)
}

func (m *MockUserService) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuthService is a mock implementation of AuthService. It also resolves sessions for the router.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Connect(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Disconnect(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAuthService) Resolve(ctx context.Context, token string) (uint, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint), args.Error(1)
}

// MockFileService is a mock implementation of FileService.
type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, ownerID uint, in service.UploadInput) (*model.FileRecord, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) Get(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	args := m.Called(ctx, requesterID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context, ownerID uint, parentID string, page int) ([]model.FileRecord, error) {
	args := m.Called(ctx, ownerID, parentID, page)
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileService) Publish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	args := m.Called(ctx, requesterID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) Unpublish(ctx context.Context, requesterID, id uint) (*model.FileRecord, error) {
	args := m.Called(ctx, requesterID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) Data(ctx context.Context, requesterID, id uint, size string) (*service.FileContent, error) {
	args := m.Called(ctx, requesterID, id, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileContent), args.Error(1)
}

func (m *MockFileService) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAppService is a mock implementation of AppService.
type MockAppService struct {
	mock.Mock
}

func (m *MockAppService) Status(ctx context.Context) service.Status {
	args := m.Called(ctx)
	return args.Get(0).(service.Status)
}

func (m *MockAppService) Stats(ctx context.Context) (service.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(service.Stats), args.Error(1)
}
