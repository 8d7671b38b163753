package handlers

import (
	"context"
	"io"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Idosegev23/homeruncms-sub000/internal/matching"
	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, name, email, password string, isAdmin bool) (*models.User, error) {
	args := m.Called(ctx, name, email, password, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id, newPassword string) error {
	args := m.Called(ctx, id, newPassword)
	return args.Error(0)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) FindCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) FindCustomerByPhone(ctx context.Context, rawPhone string) (*models.Customer, error) {
	args := m.Called(ctx, rawPhone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) UpdateCustomer(ctx context.Context, id string, updates map[string]interface{}) (*models.Customer, error) {
	args := m.Called(ctx, id, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context, limit int) ([]models.Customer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Customer), args.Error(1)
}

type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, property *models.Property) (*models.Property, error) {
	args := m.Called(ctx, property)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) UpdateProperty(ctx context.Context, id string, updates map[string]interface{}) (*models.Property, error) {
	args := m.Called(ctx, id, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) DeleteProperty(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPropertyService) ListProperties(ctx context.Context, limit int) ([]models.Property, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) AddImageToProperty(ctx context.Context, id string, imageKey string) error {
	args := m.Called(ctx, id, imageKey)
	return args.Error(0)
}

type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) MatchesForCustomer(ctx context.Context, customerID string, limit int) ([]matching.RankedProperty, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]matching.RankedProperty), args.Error(1)
}

func (m *MockMatchService) MatchesForProperty(ctx context.Context, propertyID string, limit int) ([]matching.RankedCustomer, error) {
	args := m.Called(ctx, propertyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]matching.RankedCustomer), args.Error(1)
}

func (m *MockMatchService) ScorePair(ctx context.Context, customerID, propertyID string) (*matching.Result, error) {
	args := m.Called(ctx, customerID, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*matching.Result), args.Error(1)
}

type MockInboxService struct {
	mock.Mock
}

func (m *MockInboxService) SaveInbound(ctx context.Context, msg *models.InboundMessage) (*models.InboundMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundMessage), args.Error(1)
}

func (m *MockInboxService) ListInbound(ctx context.Context, limit int) ([]models.InboundMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InboundMessage), args.Error(1)
}

func (m *MockInboxService) ListInboundForCustomer(ctx context.Context, customerID string, limit int) ([]models.InboundMessage, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InboundMessage), args.Error(1)
}

type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) GeneratePresignedPutURL(ctx context.Context, propertyID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, propertyID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorageService) GetObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageService) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockStorageService) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// fakeGateway is a hand-rolled whatsapp.IClient for handler tests. Unset
// hooks fall through to harmless defaults.
type fakeGateway struct {
	sendMessage func(ctx context.Context, chatID, text string) (*whatsapp.SendResult, error)
	sendQuoted  func(ctx context.Context, chatID, text, quotedMessageID string) (*whatsapp.SendResult, error)
	chatHistory func(ctx context.Context, chatID string, count int) ([]whatsapp.ChatMessage, error)
	avatar      func(ctx context.Context, chatID string) (*whatsapp.Avatar, error)
	check       func(ctx context.Context, phoneNumber string) bool
}

func (f *fakeGateway) SendMessage(ctx context.Context, chatID, text string) (*whatsapp.SendResult, error) {
	if f.sendMessage != nil {
		return f.sendMessage(ctx, chatID, text)
	}
	return &whatsapp.SendResult{IDMessage: "msg-1"}, nil
}

func (f *fakeGateway) SendQuoted(ctx context.Context, chatID, text, quotedMessageID string) (*whatsapp.SendResult, error) {
	if f.sendQuoted != nil {
		return f.sendQuoted(ctx, chatID, text, quotedMessageID)
	}
	return &whatsapp.SendResult{IDMessage: "msg-q"}, nil
}

func (f *fakeGateway) SendFile(ctx context.Context, chatID, fileName string, file io.Reader, caption string) (*whatsapp.SendResult, error) {
	return &whatsapp.SendResult{IDMessage: "msg-f"}, nil
}

func (f *fakeGateway) SendFileByURL(ctx context.Context, chatID, fileURL, fileName, caption string) (*whatsapp.SendResult, error) {
	return &whatsapp.SendResult{IDMessage: "msg-u"}, nil
}

func (f *fakeGateway) GetChatHistory(ctx context.Context, chatID string, count int) ([]whatsapp.ChatMessage, error) {
	if f.chatHistory != nil {
		return f.chatHistory(ctx, chatID, count)
	}
	return nil, nil
}

func (f *fakeGateway) LastIncomingMessages(ctx context.Context, minutes int) ([]whatsapp.ChatMessage, error) {
	return nil, nil
}

func (f *fakeGateway) LastOutgoingMessages(ctx context.Context, minutes int) ([]whatsapp.ChatMessage, error) {
	return nil, nil
}

func (f *fakeGateway) ReceiveNotification(ctx context.Context) (*whatsapp.Notification, error) {
	return nil, nil
}

func (f *fakeGateway) DeleteNotification(ctx context.Context, receiptID int64) error {
	return nil
}

func (f *fakeGateway) GetAvatar(ctx context.Context, chatID string) (*whatsapp.Avatar, error) {
	if f.avatar != nil {
		return f.avatar(ctx, chatID)
	}
	return nil, nil
}

func (f *fakeGateway) CheckWhatsApp(ctx context.Context, phoneNumber string) bool {
	if f.check != nil {
		return f.check(ctx, phoneNumber)
	}
	return true
}

func (f *fakeGateway) ReadChat(ctx context.Context, chatID string) error {
	return nil
}
