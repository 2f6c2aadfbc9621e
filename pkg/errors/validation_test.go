package errors

import (
	"strings"
	"testing"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "show/xlights_networks.xml", false},
		{"absolute", "/home/lights/2024/xlights_rgbeffects.xml", false},
		{"upper case extension", "C:/Show/XLIGHTS_NETWORKS.XML", false},

		{"empty", "", true},
		{"wrong extension", "show/networks.json", true},
		{"no extension", "show/networks", true},
		{"null byte", "show/net\x00works.xml", true},
		{"newline", "show/net\nworks.xml", true},
		{"too long", "/" + strings.Repeat("a", 4100) + ".xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateFilePath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateControllerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "HinksPix", false},
		{"with spaces", "Front Yard PRO V3", false},
		{"unicode", "Gärten-Controller", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"control char", "Front\x01Yard", true},
		{"too long", strings.Repeat("x", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateControllerName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateControllerName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
