package analyzer

import (
	"bytes"
	"fmt"

	"github.com/abema/go-mp4"
)

// inspectMP4InitResolution walks an fMP4 initialization segment's box tree
// looking for the first track header (tkhd) with a non-zero size, returning
// its declared width and height (tkhd stores both as 16.16 fixed-point
// values). Audio tracks declare 0x0 and are skipped.
func inspectMP4InitResolution(data []byte) (width, height int, err error) {
	_, err = mp4.ReadBoxStructure(bytes.NewReader(data), func(h *mp4.ReadHandle) (interface{}, error) {
		if h.BoxInfo.Type.String() != "tkhd" {
			return h.Expand()
		}
		box, _, err := h.ReadPayload()
		if err != nil {
			return nil, fmt.Errorf("analyzer: reading tkhd payload: %w", err)
		}
		tkhd, ok := box.(*mp4.Tkhd)
		if !ok {
			return h.Expand()
		}
		w := int(tkhd.Width >> 16)
		h2 := int(tkhd.Height >> 16)
		if w > 0 && h2 > 0 && width == 0 {
			width, height = w, h2
		}
		return nil, nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("analyzer: reading mp4 init segment: %w", err)
	}
	return width, height, nil
}
