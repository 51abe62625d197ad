package scanner

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService      = "org.bluez"
	bluezDevice       = "org.bluez.Device1"
	getManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// bluezTxPowers reads the TX power BlueZ cached for every device it knows,
// keyed by normalized address.
func bluezTxPowers() (map[string]int, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to system bus: %w", err)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := conn.Object(bluezService, "/").Call(getManagedObjects, 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("listing bluez objects: %w", err)
	}
	return txPowersFromManagedObjects(objects), nil
}

// txPowersFromManagedObjects picks Address and TxPower out of every
// org.bluez.Device1 object. Devices without a TxPower property are skipped.
func txPowersFromManagedObjects(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant) map[string]int {
	powers := make(map[string]int)
	for _, ifaces := range objects {
		props, ok := ifaces[bluezDevice]
		if !ok {
			continue
		}
		addr, ok := props["Address"].Value().(string)
		if !ok {
			continue
		}
		power, ok := props["TxPower"].Value().(int16)
		if !ok {
			continue
		}
		normalized, err := NormalizeAddress(addr)
		if err != nil {
			continue
		}
		powers[normalized] = int(power)
	}
	return powers
}
