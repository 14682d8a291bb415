package domain

import "context"

// DeviceRepository — порт хранения устройств каталога.
//
// List, GetByID и Save всегда отдают свежую копию: изменение результата не
// влияет на последующие чтения. Save сохраняет собственную копию аргумента.
type DeviceRepository interface {
	// List возвращает все устройства; пустое хранилище даёт пустой срез.
	List(ctx context.Context) ([]Device, error)

	// GetByID возвращает false и nil-ошибку, если устройства нет.
	GetByID(ctx context.Context, id string) (Device, bool, error)

	// Save вставляет устройство или полностью заменяет запись с тем же id.
	Save(ctx context.Context, d Device) (Device, error)

	// Delete удаляет устройство; отсутствие записи не считается ошибкой.
	Delete(ctx context.Context, id string) error
}

// MessageSubscriber — порт подписчика на входящие команды обновления устройств.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}
