package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/gridstitch/internal/heif"
)

// MockReader is a testify mock of heif.Reader.
type MockReader struct {
	mock.Mock
}

var _ heif.Reader = (*MockReader)(nil)

func (m *MockReader) FileInformation() heif.FileInfo {
	args := m.Called()
	return args.Get(0).(heif.FileInfo)
}

func (m *MockReader) ItemsByType(itemType string) ([]uint32, error) {
	args := m.Called(itemType)
	ids, _ := args.Get(0).([]uint32)
	return ids, args.Error(1)
}

func (m *MockReader) Grid(id uint32) (heif.Grid, error) {
	args := m.Called(id)
	return args.Get(0).(heif.Grid), args.Error(1)
}

func (m *MockReader) Width(id uint32) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

func (m *MockReader) Height(id uint32) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

// ItemData copies the []byte registered as the first return value into
// buf. An int return value is passed through as the count.
func (m *MockReader) ItemData(id uint32, buf []byte) (int, error) {
	args := m.Called(id, buf)
	switch v := args.Get(0).(type) {
	case []byte:
		if len(v) > len(buf) {
			return 0, ErrSampleTooLarge
		}
		return copy(buf, v), args.Error(1)
	case int:
		return v, args.Error(1)
	default:
		return 0, args.Error(1)
	}
}
