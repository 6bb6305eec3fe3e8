package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "UARTCONTROL", naming.Sanitize("  uart control "))
	assert.Equal(t, "", naming.Sanitize("   "))
	assert.Equal(t, "A_B", naming.Identifier("a-b"))
	assert.Equal(t, "SIFIVE_UART0", naming.Identifier("sifive,uart0"))
}

func TestEngine_Names(t *testing.T) {
	t.Parallel()

	engine := naming.NewEngine("uart", nil)
	field := regmodel.RegisterField{Name: "enable", GroupName: "control", AddressBlockName: "ctrl"}

	assert.Equal(t, "UART_REGISTER_CONTROL_ENABLE", engine.LegacyName(field))
	assert.Equal(t, "UART_REGISTER_CTRL_CONTROL_ENABLE", engine.QualifiedName(field))

	field.AddressBlockName = ""
	assert.Empty(t, engine.QualifiedName(field))

	field.GroupName = ""
	assert.Equal(t, "UART_REGISTER_ENABLE", engine.LegacyName(field))

	assert.Zero(t, engine.Table().Count("UART_REGISTER_ENABLE"))
}

func TestEngine_GroupStutter(t *testing.T) {
	t.Parallel()

	engine := naming.NewEngine("uart", nil)

	assert.Equal(t, "UART_REGISTER_CTRL_ENABLE",
		engine.LegacyName(regmodel.RegisterField{Name: "ctrl_enable", GroupName: "ctrl"}))
	assert.Equal(t, "UART_REGISTER_CTRL",
		engine.LegacyName(regmodel.RegisterField{Name: "ctrl", GroupName: "ctrl"}))
	assert.Equal(t, "UART_REGISTER_CTRLX_ENABLE",
		engine.LegacyName(regmodel.RegisterField{Name: "enable", GroupName: "ctrlx"}))
}

func TestEngine_SuppressesRepeatedLegacyName(t *testing.T) {
	t.Parallel()

	table := naming.NewCollisionTable()
	engine := naming.NewEngine("gpio", table)

	first := engine.Name(regmodel.RegisterField{Name: "value", GroupName: "pin", AddressBlockName: "a"})
	second := engine.Name(regmodel.RegisterField{Name: "value", GroupName: "pin", AddressBlockName: "b"})

	assert.True(t, first.EmitLegacy)
	assert.False(t, second.EmitLegacy)
	assert.Equal(t, []string{"GPIO_REGISTER_A_PIN_VALUE", "GPIO_REGISTER_PIN_VALUE"}, first.Emitted())
	assert.Equal(t, []string{"GPIO_REGISTER_B_PIN_VALUE"}, second.Emitted())
	assert.Equal(t, "GPIO_REGISTER_B_PIN_VALUE", second.Primary())

	assert.Equal(t, 2, table.Count("GPIO_REGISTER_PIN_VALUE"))
	assert.Equal(t, []naming.Collision{{Name: "GPIO_REGISTER_PIN_VALUE", Count: 2}}, table.Collisions())
}

func TestEngine_NameAllWithoutBlocks(t *testing.T) {
	t.Parallel()

	engine := naming.NewEngine("spi", nil)

	names := engine.NameAll([]regmodel.RegisterField{
		{Name: "cs", GroupName: "ctrl"},
		{Name: "cs", GroupName: "ctrl"},
		{Name: "len", GroupName: "ctrl"},
	})

	require.Len(t, names, 3)
	assert.Equal(t, "SPI_REGISTER_CTRL_CS", names[0].Primary())
	assert.Equal(t, []string{"SPI_REGISTER_CTRL_CS"}, names[0].Emitted())
	assert.Empty(t, names[1].Emitted())
	assert.True(t, names[2].EmitLegacy)
	assert.Len(t, engine.Table().Collisions(), 1)
}

func TestEngine_QualifiedNameTakenByLegacy(t *testing.T) {
	t.Parallel()

	engine := naming.NewEngine("uart", nil)

	first := engine.Name(regmodel.RegisterField{Name: "x", GroupName: "b", BitOffset: 1, BitWidth: 1})
	second := engine.Name(regmodel.RegisterField{Name: "x", AddressBlockName: "b", BitOffset: 9, BitWidth: 1})

	assert.Equal(t, []string{"UART_REGISTER_B_X"}, first.Emitted())
	assert.Equal(t, "UART_REGISTER_B_X", second.Qualified)
	assert.False(t, second.EmitQualified)
	assert.Equal(t, []string{"UART_REGISTER_X"}, second.Emitted())
	assert.Equal(t, "UART_REGISTER_X", second.Primary())
	assert.Equal(t, []naming.Collision{{Name: "UART_REGISTER_B_X", Count: 2}}, engine.Table().Collisions())
}
