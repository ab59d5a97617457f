package readout_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/robertof/go-victron-exporter/readout"
	"github.com/robertof/go-victron-exporter/readout/readouttest"
)

func TestDecode_TestRecord(t *testing.T) {
	payload := pack(t, unsigned(30, 0), unsigned(7, 40))
	data := encryptRecord(t, readout.RecordTypeTestRecord, testKey, 0x1234, payload)

	got, err := readout.Decode(data, testKey)
	if err != nil {
		t.Fatalf("Decode(%x) got error: %v", data, err)
	}

	want := readout.TestRecordState{UptimeSeconds: 0, TemperatureCelsius: 0}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode(%x): got %+#v, wanted %+#v", data, got, want)
	}
}

func TestDecode_SolarCharger(t *testing.T) {
	payload := pack(t,
		unsigned(8, uint64(readout.ModeBulk)),
		unsigned(8, uint64(readout.ErrorStateNoError)),
		signed(16, 1342),
		signed(16, -25),
		unsigned(16, 123),
		unsigned(16, 250),
		allOnes(9),
	)
	data := encryptRecord(t, readout.RecordTypeSolarCharger, testKey, 0xbeef, payload[:12])

	got, err := readout.Decode(data, testKey)
	if err != nil {
		t.Fatalf("Decode(%x) got error: %v", data, err)
	}

	want := readout.SolarChargerState{
		Mode:            readout.ModeBulk,
		ErrorState:      readout.ErrorStateNoError,
		BatteryVoltageV: readout.Some(13.42),
		BatteryCurrentA: readout.Some(-2.5),
		YieldTodayKWh:   readout.Some(1.23),
		PVPowerW:        readout.Some(250),
		LoadCurrentA:    readout.Value{},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode(%x): got %+#v, wanted %+#v", data, got, want)
	}
}

func TestDecode_UnsupportedDeviceType(t *testing.T) {
	data := encryptRecord(t, readout.RecordType(0xee), testKey, 1, make([]byte, 16))

	got, err := readout.Decode(data, testKey)

	if !errors.Is(err, readout.ErrUnsupportedDeviceType) {
		t.Fatalf("Decode(%x): got error %v, wanted ErrUnsupportedDeviceType", data, err)
	}

	var typed readout.UnsupportedDeviceTypeError

	if !errors.As(err, &typed) || typed.RecordType != 0xee {
		t.Fatalf("Decode(%x): got %#v, wanted UnsupportedDeviceTypeError{0xee}", data, err)
	}

	if got != nil {
		t.Fatalf("Decode(%x): got state %v on error", data, got)
	}
}

func TestDecode_WrongAdvertisementIgnoresRest(t *testing.T) {
	for marker := 0; marker < 256; marker++ {
		if marker == 0x10 {
			continue
		}

		data := encryptRecord(t, readout.RecordTypeSolarCharger, testKey, 1, make([]byte, 16))
		data[0] = byte(marker)

		if _, err := readout.Decode(data, testKey); !errors.Is(err, readout.ErrWrongAdvertisement) {
			t.Fatalf("Decode(%x): got %v, wanted ErrWrongAdvertisement", data, err)
		}
	}
}

func TestDecode_TooBigBeforeAnythingElse(t *testing.T) {
	data := make([]byte, 30)

	if _, err := readout.Decode(data, nil); !errors.Is(err, readout.ErrRecordTooBig) {
		t.Fatalf("Decode(%x): got %v, wanted ErrRecordTooBig", data, err)
	}
}

func TestDecode_InvalidModeFailsWholeRecord(t *testing.T) {
	payload := pack(t, unsigned(8, 8), unsigned(8, 0))
	data := encryptRecord(t, readout.RecordTypeSolarCharger, testKey, 3, payload)

	got, err := readout.Decode(data, testKey)

	if !errors.Is(err, readout.ErrInvalidMode) {
		t.Fatalf("Decode(%x): got %v, wanted ErrInvalidMode", data, err)
	}

	if got != nil {
		t.Fatalf("Decode(%x): got partial state %v", data, got)
	}
}

func TestDecode_InvalidErrorState(t *testing.T) {
	payload := pack(t, unsigned(8, uint64(readout.ModeFloat)), unsigned(8, 3))
	data := encryptRecord(t, readout.RecordTypeVeBus, testKey, 3, payload)

	if _, err := readout.Decode(data, testKey); !errors.Is(err, readout.ErrInvalidErrorState) {
		t.Fatalf("Decode(%x): got %v, wanted ErrInvalidErrorState", data, err)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	payload := pack(t, unsigned(8, uint64(readout.ModeFloat)), signed(16, 0), signed(16, 1250))
	data := encryptRecord(t, readout.RecordTypeInverter, testKey, 0x4242, payload)

	first, err := readout.Decode(data, testKey)
	if err != nil {
		t.Fatalf("Decode(%x) got error: %v", data, err)
	}

	for i := 0; i < 10; i++ {
		again, err := readout.Decode(data, testKey)
		if err != nil {
			t.Fatalf("Decode(%x) #%d got error: %v", data, i, err)
		}

		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Decode(%x) #%d: got %+#v, wanted %+#v", data, i, again, first)
		}
	}
}

func TestDecodeManufacturerData(t *testing.T) {
	payload := pack(t, unsigned(30, 3600), unsigned(7, 65))
	record := encryptRecord(t, readout.RecordTypeTestRecord, testKey, 9, payload)
	md := append([]byte{0xe1, 0x02}, record...)

	got, err := readout.DecodeManufacturerData(md, testKey)
	if err != nil {
		t.Fatalf("DecodeManufacturerData(%x) got error: %v", md, err)
	}

	want := readout.TestRecordState{UptimeSeconds: 3600, TemperatureCelsius: 25}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DecodeManufacturerData(%x): got %+#v, wanted %+#v", md, got, want)
	}

	otherVendor := append([]byte{0x4c, 0x00}, record...)

	if _, err := readout.DecodeManufacturerData(otherVendor, testKey); !errors.Is(err, readout.ErrWrongAdvertisement) {
		t.Fatalf("DecodeManufacturerData(%x): got %v, wanted ErrWrongAdvertisement", otherVendor, err)
	}

	if _, err := readout.DecodeManufacturerData([]byte{0xe1}, testKey); !errors.Is(err, readout.ErrWrongAdvertisement) {
		t.Fatalf("DecodeManufacturerData(e1): got %v, wanted ErrWrongAdvertisement", err)
	}
}

func TestDecodeManufacturerData_CompanyIDPrefix(t *testing.T) {
	md := readouttest.WithCompanyID(readouttest.TestRecord(t, testKey, 3, 60, 20))

	if md[0] != 0xe1 || md[1] != 0x02 {
		t.Fatalf("WithCompanyID: got prefix %x, wanted e102", md[:2])
	}

	got, err := readout.DecodeManufacturerData(md, testKey)
	if err != nil {
		t.Fatalf("DecodeManufacturerData(%x) got error: %v", md, err)
	}

	want := readout.TestRecordState{UptimeSeconds: 60, TemperatureCelsius: 20}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DecodeManufacturerData(%x): got %+#v, wanted %+#v", md, got, want)
	}
}

// A record without ciphertext still decodes: fields come from the decrypted padding.
func TestDecode_HeaderOnlyRecordReadsPadding(t *testing.T) {
	data := encryptRecord(t, readout.RecordTypeTestRecord, testKey, 0x0102, nil)

	if len(data) != 8 {
		t.Fatalf("header-only record: got %d bytes, wanted 8", len(data))
	}

	got, err := readout.Decode(data, testKey)
	if err != nil {
		t.Fatalf("Decode(%x) got error: %v", data, err)
	}

	if _, ok := got.(readout.TestRecordState); !ok {
		t.Fatalf("Decode(%x): got %T, wanted readout.TestRecordState", data, got)
	}

	if _, err := readout.Decode(data[:7], testKey); !errors.Is(err, readout.ErrDataTooShort) {
		t.Fatalf("Decode(%x): got %v, wanted ErrDataTooShort", data[:7], err)
	}
}

func TestIsFatal(t *testing.T) {
	if readout.IsFatal(nil) {
		t.Fatalf("IsFatal(nil) = true")
	}

	if readout.IsFatal(readout.ErrWrongAdvertisement) {
		t.Fatalf("IsFatal(ErrWrongAdvertisement) = true")
	}

	for _, err := range []error{
		readout.ErrRecordTooBig,
		readout.ErrIncorrectDeviceEncryptionKey,
		readout.UnsupportedDeviceTypeError{RecordType: 0x42},
		readout.ErrDataTooShort,
	} {
		if !readout.IsFatal(err) {
			t.Fatalf("IsFatal(%v) = false", err)
		}
	}
}
