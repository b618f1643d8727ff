// Package mocks provides test doubles shared across packages.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

func (m *MockConfig) Logger() config.LoggerConfig {
	return m.Called().Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	return m.Called().Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Humanoid() config.HumanoidConfig {
	return m.Called().Get(0).(config.HumanoidConfig)
}

func (m *MockConfig) Session() config.SessionConfig {
	return m.Called().Get(0).(config.SessionConfig)
}

func (m *MockConfig) Detector() config.DetectorConfig {
	return m.Called().Get(0).(config.DetectorConfig)
}

func (m *MockConfig) Selectors() config.SelectorsConfig {
	return m.Called().Get(0).(config.SelectorsConfig)
}

func (m *MockConfig) Evidence() config.EvidenceConfig {
	return m.Called().Get(0).(config.EvidenceConfig)
}

func (m *MockConfig) Limits() config.LimitsConfig {
	return m.Called().Get(0).(config.LimitsConfig)
}

func (m *MockConfig) Server() config.ServerConfig {
	return m.Called().Get(0).(config.ServerConfig)
}

// -- Launcher Mock --

// MockLauncher mocks browser.Launcher.
type MockLauncher struct {
	mock.Mock
}

var _ browser.Launcher = (*MockLauncher)(nil)

func (m *MockLauncher) Launch(ctx context.Context) (browser.Page, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(browser.Page)
	return p, args.Error(1)
}
