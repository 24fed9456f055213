// file: services/qrcode_service_test.go
package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock encoder function (successful)
func mockQRCodeEncoderSuccess(content string, level qrcode.RecoveryLevel, size int) ([]byte, error) {
	return []byte("mock_qr_code_data:" + content), nil
}

// Mock encoder function (failure)
func mockQRCodeEncoderFailure(content string, level qrcode.RecoveryLevel, size int) ([]byte, error) {
	return nil, errors.New("QR code generation failed")
}

func TestGenerateQRCode_Success(t *testing.T) {
	data, err := GenerateQRCode("http://localhost:8080", 200, mockQRCodeEncoderSuccess)

	assert.NoError(t, err)
	assert.Equal(t, "mock_qr_code_data:http://localhost:8080", string(data))
}

func TestGenerateQRCode_InvalidSize(t *testing.T) {
	data, err := GenerateQRCode("http://localhost:8080", -100, mockQRCodeEncoderSuccess)

	assert.Nil(t, data)
	assert.EqualError(t, err, "invalid size: must be positive")
}

func TestGenerateQRCode_EmptyContent(t *testing.T) {
	_, err := GenerateQRCode("", 200, mockQRCodeEncoderSuccess)
	assert.Error(t, err)
}

func TestGenerateQRCode_EncoderFails(t *testing.T) {
	data, err := GenerateQRCode("http://localhost:8080", 200, mockQRCodeEncoderFailure)

	assert.Nil(t, data)
	assert.EqualError(t, err, "QR code generation failed")
}

func TestGenerateQRCode_RealEncoderWritesPNG(t *testing.T) {
	data, err := GenerateQRCode("http://localhost:8080", 64, nil)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}
