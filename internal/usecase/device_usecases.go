package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/catalog-service/internal/domain"
)

var (
	// ErrInvalidBody — тело команды не является JSON-объектом нужного вида.
	ErrInvalidBody = fmt.Errorf("%w: invalid command body", domain.ErrValidation)
	// ErrMissingFields — в команде нет id, name, pricePence или description.
	ErrMissingFields = fmt.Errorf("%w: missing required fields: id, name, pricePence, description", domain.ErrValidation)

	errNoClock = errors.New("usecase: clock not configured")
)

// UpsertDeviceCommand — входные данные для создания или замены устройства.
type UpsertDeviceCommand struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PricePence  float64 `json:"pricePence"`
	Description string  `json:"description"`
}

type rawUpsertCommand struct {
	ID          *string  `json:"id"`
	Name        *string  `json:"name"`
	PricePence  *float64 `json:"pricePence"`
	Description *string  `json:"description"`
}

// ParseUpsertCommand decodes a JSON object into a command. Absent or empty
// fields yield ErrMissingFields; anything that is not such an object yields
// ErrInvalidBody.
func ParseUpsertCommand(raw []byte) (UpsertDeviceCommand, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return UpsertDeviceCommand{}, ErrInvalidBody
	}
	var rc rawUpsertCommand
	if err := json.Unmarshal(raw, &rc); err != nil {
		return UpsertDeviceCommand{}, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if empty(rc.ID) || empty(rc.Name) || rc.PricePence == nil || empty(rc.Description) {
		return UpsertDeviceCommand{}, ErrMissingFields
	}
	return UpsertDeviceCommand{
		ID:          *rc.ID,
		Name:        *rc.Name,
		PricePence:  *rc.PricePence,
		Description: *rc.Description,
	}, nil
}

func empty(s *string) bool { return s == nil || *s == "" }

// ListDevices — получить все устройства каталога.
type ListDevices struct {
	Repo domain.DeviceRepository
}

func (uc ListDevices) Execute(ctx context.Context) Result[[]domain.Device] {
	devices, err := uc.Repo.List(ctx)
	if err != nil {
		return Fail[[]domain.Device](err)
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	return Ok(devices)
}

// GetDevice — получить устройство по идентификатору; Found=false, если его нет.
type GetDevice struct {
	Repo domain.DeviceRepository
}

// Lookup is the payload of GetDevice.
type Lookup struct {
	Device domain.Device
	Found  bool
}

func (uc GetDevice) Execute(ctx context.Context, id string) Result[Lookup] {
	d, ok, err := uc.Repo.GetByID(ctx, id)
	if err != nil {
		return Fail[Lookup](err)
	}
	return Ok(Lookup{Device: d, Found: ok})
}

// UpsertDevice — проверить команду и сохранить устройство с меткой времени из Now.
type UpsertDevice struct {
	Repo domain.DeviceRepository
	Now  Clock
}

func (uc UpsertDevice) Execute(ctx context.Context, cmd UpsertDeviceCommand) Result[domain.Device] {
	if uc.Now == nil {
		return Fail[domain.Device](errNoClock)
	}
	device, err := domain.NewDevice(domain.DeviceParams{
		ID:          cmd.ID,
		Name:        cmd.Name,
		PricePence:  cmd.PricePence,
		Description: cmd.Description,
		UpdatedAt:   uc.Now(),
	})
	if err != nil {
		return Fail[domain.Device](err)
	}
	saved, err := uc.Repo.Save(ctx, device)
	if err != nil {
		return Fail[domain.Device](err)
	}
	return Ok(saved)
}

// DeleteDevice — удалить устройство; удаление отсутствующего id не ошибка.
type DeleteDevice struct {
	Repo domain.DeviceRepository
}

func (uc DeleteDevice) Execute(ctx context.Context, id string) Result[struct{}] {
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return Fail[struct{}](err)
	}
	return Ok(struct{}{})
}

// ProcessIncomingDevice — применить входящее сообщение с командой upsert.
// Ошибки, совместимые с domain.ErrValidation, означают «ядовитое» сообщение,
// повтор доставки его не исправит.
type ProcessIncomingDevice struct {
	Upsert UpsertDevice
}

func (uc ProcessIncomingDevice) Execute(ctx context.Context, raw []byte) error {
	cmd, err := ParseUpsertCommand(raw)
	if err != nil {
		return err
	}
	return uc.Upsert.Execute(ctx, cmd).Err()
}
