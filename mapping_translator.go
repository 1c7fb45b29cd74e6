package kilgo

import (
	"fmt"
	"math"
	"reflect"
)

// Implements a translator between a device payload property and Characteristic.
// Generally translators should be flexible to translate in either direction,
// e.g. a percentage to 0-254 translator should be able to apply the percentage
// to either the payload side, or the Characteristic side, but the
// MappingTranslator is a fixed direction for simplicity.
type MappingTranslator interface {
	ToCharacteristicValue(payloadValue any) (cValue any, err error)
	ToPayloadValue(cValue any) (payloadValue any, err error)
}

// Default pass-through "translator", where both payload and Characteristic
// values are of the same or similar types.
type PassthruTranslator struct{}

var defaultTranslator = &PassthruTranslator{}

func (p *PassthruTranslator) ToPayloadValue(v any) (any, error)        { return v, nil }
func (p *PassthruTranslator) ToCharacteristicValue(v any) (any, error) { return v, nil }

// Chains another Translator to transform values further.
// You can chain another Translator on the PayloadSide or the CharacteristicSide:
//
//	Payload   -- ToCharacteristicValue() -->  Characteristic
//	 Value      <--- ToPayloadValue() ---         Value
type ChainedTranslator struct{ PayloadSide, CharacteristicSide MappingTranslator }

func (t *ChainedTranslator) ToPayloadValue(cVal any) (any, error) {
	v, err := t.CharacteristicSide.ToPayloadValue(cVal)
	if err != nil {
		return v, err
	}
	return t.PayloadSide.ToPayloadValue(v)
}

func (t *ChainedTranslator) ToCharacteristicValue(pVal any) (any, error) {
	v, err := t.PayloadSide.ToCharacteristicValue(pVal)
	if err != nil {
		return v, err
	}
	return t.CharacteristicSide.ToCharacteristicValue(v)
}

// Wraps a Translator and flips the translation direction.
// This allows a translator to work for either a payload value or
// Characteristic value.
type FlippedTranslator struct{ T MappingTranslator }

func (t *FlippedTranslator) ToPayloadValue(cVal any) (any, error) {
	return t.T.ToCharacteristicValue(cVal)
}

func (t *FlippedTranslator) ToCharacteristicValue(pVal any) (any, error) {
	return t.T.ToPayloadValue(pVal)
}

var ErrTranslationError = fmt.Errorf("cannot translate value")

// Translates a bool payload value to specified Characteristic T/F values
type BoolTranslator struct{ TrueValue, FalseValue any }

func (t *BoolTranslator) ToPayloadValue(cVal any) (any, error) {
	switch cVal {
	case t.TrueValue:
		return true, nil

	case t.FalseValue:
		return false, nil
	}
	return nil, ErrTranslationError
}

func (t *BoolTranslator) ToCharacteristicValue(pVal any) (any, error) {
	bVal, ok := pVal.(bool)
	if !ok {
		return nil, ErrTranslationError
	} else if bVal {
		return t.TrueValue, nil
	}
	return t.FalseValue, nil
}

// Translates a numeric payload value in [Min, Max] to percentage Characteristic values
type PercentageTranslator struct{ Min, Max float64 }

func (t *PercentageTranslator) ToPayloadValue(cVal any) (any, error) {
	cVal2, ok := valToFloat64(cVal)
	if !ok {
		return nil, ErrTranslationError
	}
	v := t.Min + (cVal2 / 100. * (t.Max - t.Min))
	return v, nil
}

func (t *PercentageTranslator) ToCharacteristicValue(pVal any) (any, error) {
	pVal2, ok := valToFloat64(pVal)
	if !ok {
		return nil, ErrTranslationError
	}
	v := (pVal2 - t.Min) * 100. / (t.Max - t.Min)
	return v, nil
}

// Rounds numeric values to the nearest int, in both directions
type RoundTranslator struct{}

func (t *RoundTranslator) ToPayloadValue(cVal any) (any, error) { return roundToInt(cVal) }

func (t *RoundTranslator) ToCharacteristicValue(pVal any) (any, error) { return roundToInt(pVal) }

func roundToInt(v any) (any, error) {
	f, ok := valToFloat64(v)
	if !ok {
		return nil, ErrTranslationError
	}
	return int(math.Round(f)), nil
}

// Converts numeric values to float64, if possible
// Returns the converted float64 value and a bool indicating if it was successful.
func valToFloat64(v any) (float64, bool) {
	val := reflect.ValueOf(v)
	switch {
	case val.CanInt():
		return float64(val.Int()), true
	case val.CanUint():
		return float64(val.Uint()), true
	case val.CanFloat():
		return val.Float(), true
	}
	return 0, false
}

// Translates a string enum payload value to specified Characteristic values
type EnumTranslator struct{ EnumMap map[string]any }

func (t *EnumTranslator) ToPayloadValue(cVal any) (any, error) {
	for k, v := range t.EnumMap {
		if v == cVal || cmpNumeric(v, cVal) {
			return k, nil
		}
	}
	return nil, ErrTranslationError
}

// Compares two values numerically, regardless of their int/float types.
// Values arriving from HomeKit may not have the same type as the enum values.
func cmpNumeric(a, b any) bool {
	af, ok := valToFloat64(a)
	if !ok {
		return false
	}
	bf, ok := valToFloat64(b)
	return ok && af == bf
}

func (t *EnumTranslator) ToCharacteristicValue(pVal any) (any, error) {
	if sVal, ok := pVal.(string); ok {
		if v, ok := t.EnumMap[sVal]; ok {
			return v, nil
		}
	}
	return nil, ErrTranslationError
}
