package main

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestDeviceObjectPath(t *testing.T) {
	assert.Equal(t,
		dbus.ObjectPath("/org/bluez/hci0/dev_90_F6_44_AA_EE_67"),
		deviceObjectPath("90:F6:44:AA:EE:67"))
}

func TestMacFromPath(t *testing.T) {
	assert.Equal(t, "90:F6:44:AA:EE:67",
		macFromPath("/org/bluez/hci0/dev_90_F6_44_AA_EE_67"))
	assert.Equal(t, "", macFromPath("/org/bluez/hci1/dev_90_F6_44_AA_EE_67"))
	assert.Equal(t, "", macFromPath("/some/other/path"))
}
