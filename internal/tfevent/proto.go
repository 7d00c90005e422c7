package tfevent

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// FileVersion is written in the first event of every file.
const FileVersion = "brain.Event:2"

const (
	dtString       = 7 // tensorflow.DataType DT_STRING
	textPluginName = "text"
)

// Event mirrors tensorflow.Event, restricted to the fields runboard writes.
type Event struct {
	WallTime    float64
	Step        int64
	FileVersion string
	Summary     *Summary
}

// Summary mirrors tensorflow.Summary.
type Summary struct {
	Values []Value
}

// Value mirrors tensorflow.Summary.Value. Exactly one payload field is set.
// Text is carried on the wire as a DT_STRING tensor tagged for the text plugin.
type Value struct {
	Tag         string
	SimpleValue *float32
	Image       *Image
	Histo       *Histogram
	Audio       *Audio
	Text        *string
}

// Image mirrors tensorflow.Summary.Image.
type Image struct {
	Height     int32
	Width      int32
	Colorspace int32
	Encoded    []byte
}

// Histogram mirrors tensorflow.HistogramProto.
type Histogram struct {
	Min         float64
	Max         float64
	Num         float64
	Sum         float64
	SumSquares  float64
	BucketLimit []float64
	Bucket      []float64
}

// Audio mirrors tensorflow.Summary.Audio.
type Audio struct {
	SampleRate   float32
	NumChannels  int64
	LengthFrames int64
	Encoded      []byte
	ContentType  string
}

// Marshal encodes the event in protobuf wire format.
func (e *Event) Marshal() []byte {
	var b []byte
	b = appendDouble(b, 1, e.WallTime)
	if e.Step != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Step))
	}
	if e.FileVersion != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, e.FileVersion)
	}
	if e.Summary != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Summary.marshal())
	}
	return b
}

func (s *Summary) marshal() []byte {
	var b []byte
	for i := range s.Values {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, s.Values[i].marshal())
	}
	return b
}

func (v *Value) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, v.Tag)

	switch {
	case v.SimpleValue != nil:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*v.SimpleValue))
	case v.Image != nil:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Image.marshal())
	case v.Histo != nil:
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Histo.marshal())
	case v.Audio != nil:
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Audio.marshal())
	case v.Text != nil:
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendBytes(b, textMetadata())
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, textTensor(*v.Text))
	}
	return b
}

func (img *Image) marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(img.Height))
	b = appendVarint(b, 2, uint64(img.Width))
	b = appendVarint(b, 3, uint64(img.Colorspace))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, img.Encoded)
	return b
}

func (h *Histogram) marshal() []byte {
	var b []byte
	b = appendDouble(b, 1, h.Min)
	b = appendDouble(b, 2, h.Max)
	b = appendDouble(b, 3, h.Num)
	b = appendDouble(b, 4, h.Sum)
	b = appendDouble(b, 5, h.SumSquares)
	b = appendPackedDoubles(b, 6, h.BucketLimit)
	b = appendPackedDoubles(b, 7, h.Bucket)
	return b
}

func (a *Audio) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(a.SampleRate))
	b = appendVarint(b, 2, uint64(a.NumChannels))
	b = appendVarint(b, 3, uint64(a.LengthFrames))
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, a.Encoded)
	if a.ContentType != "" {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, a.ContentType)
	}
	return b
}

// textMetadata encodes SummaryMetadata{plugin_data: {plugin_name: "text"}}.
func textMetadata() []byte {
	var plugin []byte
	plugin = protowire.AppendTag(plugin, 1, protowire.BytesType)
	plugin = protowire.AppendString(plugin, textPluginName)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, plugin)
	return b
}

// textTensor encodes a DT_STRING TensorProto of shape [1].
func textTensor(text string) []byte {
	var dim []byte
	dim = appendVarint(dim, 1, 1)
	var shape []byte
	shape = protowire.AppendTag(shape, 2, protowire.BytesType)
	shape = protowire.AppendBytes(shape, dim)

	var b []byte
	b = appendVarint(b, 1, dtString)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, shape)
	b = protowire.AppendTag(b, 8, protowire.BytesType)
	b = protowire.AppendString(b, text)
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendPackedDoubles(b []byte, num protowire.Number, vs []float64) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// UnmarshalEvent decodes a tensorflow.Event. Fields runboard does not model
// are skipped.
func UnmarshalEvent(b []byte) (*Event, error) {
	e := &Event{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			e.WallTime = math.Float64frombits(v)
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Step = int64(v)
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			e.FileVersion = v
			return n, nil
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			s, err := unmarshalSummary(v)
			e.Summary = s
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func unmarshalSummary(b []byte) (*Summary, error) {
	s := &Summary{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 || typ != protowire.BytesType {
			return 0, nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		val, err := unmarshalValue(v)
		if err != nil {
			return n, err
		}
		s.Values = append(s.Values, *val)
		return n, nil
	})
	return s, err
}

func unmarshalValue(b []byte) (*Value, error) {
	v := &Value{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			v.Tag = s
			return n, nil
		case num == 2 && typ == protowire.Fixed32Type:
			x, n := protowire.ConsumeFixed32(b)
			f := math.Float32frombits(x)
			v.SimpleValue = &f
			return n, nil
		case typ == protowire.BytesType && (num == 4 || num == 5 || num == 6 || num == 8):
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var err error
			switch num {
			case 4:
				v.Image, err = unmarshalImage(raw)
			case 5:
				v.Histo, err = unmarshalHistogram(raw)
			case 6:
				v.Audio, err = unmarshalAudio(raw)
			case 8:
				v.Text, err = unmarshalTextTensor(raw)
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func unmarshalImage(b []byte) (*Image, error) {
	img := &Image{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.VarintType && num >= 1 && num <= 3:
			x, n := protowire.ConsumeVarint(b)
			switch num {
			case 1:
				img.Height = int32(x)
			case 2:
				img.Width = int32(x)
			case 3:
				img.Colorspace = int32(x)
			}
			return n, nil
		case num == 4 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			img.Encoded = append([]byte(nil), raw...)
			return n, nil
		}
		return 0, nil
	})
	return img, err
}

func unmarshalHistogram(b []byte) (*Histogram, error) {
	h := &Histogram{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.Fixed64Type && num >= 1 && num <= 5:
			x, n := protowire.ConsumeFixed64(b)
			f := math.Float64frombits(x)
			switch num {
			case 1:
				h.Min = f
			case 2:
				h.Max = f
			case 3:
				h.Num = f
			case 4:
				h.Sum = f
			case 5:
				h.SumSquares = f
			}
			return n, nil
		case num == 6 || num == 7:
			target := &h.BucketLimit
			if num == 7 {
				target = &h.Bucket
			}
			return consumeDoubles(b, typ, target)
		}
		return 0, nil
	})
	return h, err
}

func unmarshalAudio(b []byte) (*Audio, error) {
	a := &Audio{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed32Type:
			x, n := protowire.ConsumeFixed32(b)
			a.SampleRate = math.Float32frombits(x)
			return n, nil
		case (num == 2 || num == 3) && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			if num == 2 {
				a.NumChannels = int64(x)
			} else {
				a.LengthFrames = int64(x)
			}
			return n, nil
		case num == 4 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			a.Encoded = append([]byte(nil), raw...)
			return n, nil
		case num == 5 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			a.ContentType = s
			return n, nil
		}
		return 0, nil
	})
	return a, err
}

// unmarshalTextTensor extracts the first string_val of a TensorProto. A
// tensor without string values yields nil.
func unmarshalTextTensor(b []byte) (*string, error) {
	var text *string
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 8 || typ != protowire.BytesType {
			return 0, nil
		}
		s, n := protowire.ConsumeString(b)
		if text == nil && n >= 0 {
			text = &s
		}
		return n, nil
	})
	return text, err
}

// consumeDoubles reads a repeated double field in packed or unpacked form.
func consumeDoubles(b []byte, typ protowire.Type, out *[]float64) (int, error) {
	switch typ {
	case protowire.Fixed64Type:
		x, n := protowire.ConsumeFixed64(b)
		*out = append(*out, math.Float64frombits(x))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		for len(packed) > 0 {
			x, m := protowire.ConsumeFixed64(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*out = append(*out, math.Float64frombits(x))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, nil
}

// walk iterates over the fields of a message. fn returns the number of bytes
// it consumed for the field value, or 0 to have the field skipped.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}
