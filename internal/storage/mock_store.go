package storage

import "github.com/stretchr/testify/mock"

// MockStore is a testify mock for asserting storage calls and injecting
// storage failures.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Set(key, value string) error {
	return m.Called(key, value).Error(0)
}

func (m *MockStore) Remove(key string) error {
	return m.Called(key).Error(0)
}

func (m *MockStore) Keys() ([]string, error) {
	args := m.Called()
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
