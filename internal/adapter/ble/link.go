// Package ble implements radio.Link over Bluetooth Low Energy.
package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/watchlink/internal/radio"
	"tinygo.org/x/bluetooth"
)

var (
	ErrDeviceNotFound         = errors.New("ble: no matching device found")
	ErrCharacteristicNotFound = errors.New("ble: characteristic not found")
	errNotConnected           = errors.New("ble: not connected")
)

// Link talks to one peripheral through the host Bluetooth adapter.
type Link struct {
	adapter        *bluetooth.Adapter
	profile        radio.Profile
	serviceUUID    bluetooth.UUID
	characteristic bluetooth.UUID
	logger         *slog.Logger

	enableOnce sync.Once
	enableErr  error

	mu     sync.Mutex
	device *bluetooth.Device
	char   *bluetooth.DeviceCharacteristic
}

// NewLink validates the profile and binds it to the default adapter.
func NewLink(profile radio.Profile, logger *slog.Logger) (*Link, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	svc, err := bluetooth.ParseUUID(profile.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service uuid: %w", err)
	}
	chr, err := bluetooth.ParseUUID(profile.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic uuid: %w", err)
	}
	return &Link{
		adapter:        bluetooth.DefaultAdapter,
		profile:        profile,
		serviceUUID:    svc,
		characteristic: chr,
		logger:         logger,
	}, nil
}

// Connect scans for the first peripheral matching the profile, connects and
// resolves the characteristic.
func (l *Link) Connect(ctx context.Context) (string, error) {
	l.enableOnce.Do(func() {
		l.enableErr = l.adapter.Enable()
	})
	if l.enableErr != nil {
		return "", fmt.Errorf("enable bluetooth adapter: %w", l.enableErr)
	}

	result, err := l.scan(ctx)
	if err != nil {
		return "", err
	}
	l.logger.Info("found device", "address", result.Address.String(), "name", result.LocalName(), "rssi", result.RSSI)

	device, err := l.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", result.Address.String(), err)
	}

	char, err := l.discover(device)
	if err != nil {
		_ = device.Disconnect()
		return "", err
	}

	l.mu.Lock()
	l.device = &device
	l.char = &char
	l.mu.Unlock()

	return result.Address.String(), nil
}

func (l *Link) scan(ctx context.Context) (bluetooth.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.profile.ScanTimeout)
	defer cancel()

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		scanErr <- l.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !l.matches(r) {
				return
			}
			select {
			case found <- r:
				_ = a.StopScan()
			default:
			}
		})
	}()

	select {
	case r := <-found:
		<-scanErr
		return r, nil
	case err := <-scanErr:
		if err != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("scan: %w", err)
		}
		select {
		case r := <-found:
			return r, nil
		default:
			return bluetooth.ScanResult{}, ErrDeviceNotFound
		}
	case <-ctx.Done():
		_ = l.adapter.StopScan()
		<-scanErr
		select {
		case r := <-found:
			return r, nil
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return bluetooth.ScanResult{}, fmt.Errorf("%w within %s", ErrDeviceNotFound, l.profile.ScanTimeout)
		}
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

func (l *Link) matches(r bluetooth.ScanResult) bool {
	if l.profile.DeviceName != "" {
		return strings.EqualFold(r.LocalName(), l.profile.DeviceName)
	}
	return r.HasServiceUUID(l.serviceUUID)
}

func (l *Link) discover(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	services, err := device.DiscoverServices([]bluetooth.UUID{l.serviceUUID})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("service %s: %w", l.profile.ServiceUUID, ErrCharacteristicNotFound)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{l.characteristic})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%s: %w", l.profile.CharacteristicUUID, ErrCharacteristicNotFound)
	}
	return chars[0], nil
}

// Disconnect drops the connection. It is safe to call when not connected.
func (l *Link) Disconnect(_ context.Context) error {
	l.mu.Lock()
	device := l.device
	l.device = nil
	l.char = nil
	l.mu.Unlock()

	if device == nil {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Write sends payload without waiting for a response.
func (l *Link) Write(ctx context.Context, payload []byte) error {
	char, err := l.current()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if _, err := char.WriteWithoutResponse(payload); err != nil {
		return fmt.Errorf("write characteristic: %w", err)
	}
	l.logger.Debug("wrote characteristic", "bytes", len(payload), "elapsed", time.Since(start))
	return nil
}

// Notify delivers characteristic notifications to handler.
func (l *Link) Notify(_ context.Context, handler func([]byte)) error {
	char, err := l.current()
	if err != nil {
		return err
	}
	if err := char.EnableNotifications(handler); err != nil {
		return fmt.Errorf("enable notifications: %w", err)
	}
	return nil
}

// StopNotify unregisters the notification handler.
func (l *Link) StopNotify(_ context.Context) error {
	char, err := l.current()
	if err != nil {
		return err
	}
	if err := char.EnableNotifications(nil); err != nil {
		return fmt.Errorf("disable notifications: %w", err)
	}
	return nil
}

func (l *Link) current() (*bluetooth.DeviceCharacteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.char == nil {
		return nil, errNotConnected
	}
	return l.char, nil
}

var _ radio.Link = (*Link)(nil)
