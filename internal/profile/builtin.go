package profile

// Built-in profiles for the supported chips. Descriptor files under the
// profile directory overlay these.
var builtin = map[string]Profile{
	"esp32": {
		ChipID:           "esp32",
		ChipName:         "ESP32",
		Manufacturer:     "Espressif",
		Architecture:     "Xtensa",
		FlashSizeBytes:   4194304,
		RAMSizeBytes:     32768,
		CPUFrequencyMHz:  240,
		SupportedFormats: []string{"bin", "elf"},
		Toolchain: Toolchain{
			Compiler:        "xtensa-esp32-elf-gcc",
			Flasher:         "esptool",
			VersionRequired: "4.0.0",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:  921600,
			FlashMode: "dio",
			FlashFreq: "40m",
			FlashSize: "4MB",
			Offset:    "0x1000",
		},
		Capabilities: []string{"flash", "verify", "erase"},
	},
	"esp32:s2": {
		ChipID:           "esp32",
		ChipVariant:      "s2",
		ChipName:         "ESP32-S2",
		Manufacturer:     "Espressif",
		Architecture:     "Xtensa",
		FlashSizeBytes:   4194304,
		RAMSizeBytes:     32768,
		CPUFrequencyMHz:  240,
		SupportedFormats: []string{"bin", "elf"},
		Toolchain: Toolchain{
			Compiler:        "xtensa-esp32s2-elf-gcc",
			Flasher:         "esptool",
			VersionRequired: "4.0.0",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:  921600,
			FlashMode: "dio",
			FlashFreq: "40m",
			FlashSize: "4MB",
			Offset:    "0x1000",
		},
		Capabilities: []string{"flash", "verify", "erase"},
	},
	"esp32:c3": {
		ChipID:           "esp32",
		ChipVariant:      "c3",
		ChipName:         "ESP32-C3",
		Manufacturer:     "Espressif",
		Architecture:     "RISC-V",
		FlashSizeBytes:   4194304,
		RAMSizeBytes:     32768,
		CPUFrequencyMHz:  160,
		SupportedFormats: []string{"bin", "elf"},
		Toolchain: Toolchain{
			Compiler:        "riscv32-esp-elf-gcc",
			Flasher:         "esptool",
			VersionRequired: "4.0.0",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:  921600,
			FlashMode: "dio",
			FlashFreq: "80m",
			FlashSize: "4MB",
			Offset:    "0x0",
		},
		Capabilities: []string{"flash", "verify", "erase"},
	},
	"esp8266": {
		ChipID:           "esp8266",
		ChipName:         "ESP8266",
		Manufacturer:     "Espressif",
		Architecture:     "Xtensa",
		FlashSizeBytes:   1048576,
		RAMSizeBytes:     81920,
		CPUFrequencyMHz:  80,
		SupportedFormats: []string{"bin", "elf"},
		Toolchain: Toolchain{
			Compiler:        "xtensa-lx106-elf-gcc",
			Flasher:         "esptool",
			VersionRequired: "4.0.0",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:  115200,
			FlashMode: "dio",
			FlashFreq: "40m",
			FlashSize: "1MB",
			Offset:    "0x00000",
		},
		Capabilities: []string{"flash", "verify", "erase"},
	},
	"atmega328p": {
		ChipID:           "atmega328p",
		ChipName:         "ATmega328P",
		Manufacturer:     "Microchip",
		Architecture:     "AVR",
		FlashSizeBytes:   32768,
		RAMSizeBytes:     2048,
		CPUFrequencyMHz:  16,
		SupportedFormats: []string{"hex"},
		Toolchain: Toolchain{
			Compiler: "avr-gcc",
			Flasher:  "avrdude",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:   115200,
			Programmer: "arduino",
		},
		Capabilities: []string{"flash", "verify"},
	},
	"atmega2560": {
		ChipID:           "atmega2560",
		ChipName:         "ATmega2560",
		Manufacturer:     "Microchip",
		Architecture:     "AVR",
		FlashSizeBytes:   262144,
		RAMSizeBytes:     8192,
		CPUFrequencyMHz:  16,
		SupportedFormats: []string{"hex"},
		Toolchain: Toolchain{
			Compiler: "avr-gcc",
			Flasher:  "avrdude",
		},
		FlashDefaults: FlashDefaults{
			BaudRate:   115200,
			Programmer: "arduino",
		},
		Capabilities: []string{"flash", "verify"},
	},
	"stm32f1": {
		ChipID:           "stm32f1",
		ChipName:         "STM32F103",
		Manufacturer:     "STMicroelectronics",
		Architecture:     "ARM Cortex-M3",
		FlashSizeBytes:   65536,
		RAMSizeBytes:     20480,
		CPUFrequencyMHz:  72,
		SupportedFormats: []string{"bin"},
		Toolchain: Toolchain{
			Compiler: "arm-none-eabi-gcc",
			Flasher:  "stm32flash",
		},
		FlashDefaults: FlashDefaults{
			BaudRate: 115200,
			Offset:   "0x08000000",
		},
		Capabilities: []string{"flash", "verify"},
	},
	"pic16f877a": {
		ChipID:           "pic16f877a",
		ChipName:         "PIC16F877A",
		Manufacturer:     "Microchip",
		Architecture:     "PIC",
		FlashSizeBytes:   14336,
		RAMSizeBytes:     368,
		CPUFrequencyMHz:  20,
		SupportedFormats: []string{"hex"},
		Toolchain: Toolchain{
			Compiler: "xc8",
			Flasher:  "pk3cmd",
		},
		FlashDefaults: FlashDefaults{
			BaudRate: 115200,
		},
		Capabilities: []string{"flash"},
	},
	"numicro:m031": {
		ChipID:           "numicro",
		ChipVariant:      "m031",
		ChipName:         "NuMicro M031",
		Manufacturer:     "Nuvoton",
		Architecture:     "ARM Cortex-M0",
		FlashSizeBytes:   131072,
		RAMSizeBytes:     16384,
		CPUFrequencyMHz:  48,
		SupportedFormats: []string{"bin"},
		Toolchain: Toolchain{
			Compiler: "arm-none-eabi-gcc",
			Flasher:  "nu-link",
		},
		FlashDefaults: FlashDefaults{
			BaudRate: 115200,
			Offset:   "0x0",
		},
		Capabilities: []string{"flash", "verify"},
	},
}
