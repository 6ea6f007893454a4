package headers

import "github.com/ThreeDotsLabs/watermill/message"

// FromWatermill copies Watermill metadata into Headers.
func FromWatermill(md message.Metadata) Headers {
	if len(md) == 0 {
		return Headers{}
	}

	result := make(Headers, len(md))
	for k, v := range md {
		result[k] = v
	}
	return result
}

// ToWatermill copies Headers into Watermill metadata.
func ToWatermill(h Headers) message.Metadata {
	if len(h) == 0 {
		return message.Metadata{}
	}

	wm := make(message.Metadata, len(h))
	for k, v := range h {
		wm[k] = v
	}
	return wm
}
