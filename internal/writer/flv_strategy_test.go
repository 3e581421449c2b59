package writer

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/streamrepair/internal/amf0"
	"github.com/jmylchreest/streamrepair/internal/flv"
	"github.com/jmylchreest/streamrepair/internal/storage"
)

func reservedScriptTagForTest(n int) flv.Tag {
	times := make(amf0.StrictArray, n)
	positions := make(amf0.StrictArray, n)
	for i := range times {
		times[i] = float64(0)
		positions[i] = float64(0)
	}
	metadata := amf0.Object{
		{Key: "duration", Value: float64(0)},
		{Key: "filesize", Value: float64(0)},
		{Key: "width", Value: float64(0)},
		{Key: "height", Value: float64(0)},
		{Key: "videocodecid", Value: float64(0)},
		{Key: "audiocodecid", Value: float64(0)},
		{Key: "lasttimestamp", Value: float64(0)},
		{Key: "lastkeyframetimestamp", Value: float64(0)},
		{Key: "lastkeyframelocation", Value: float64(0)},
		{Key: "keyframes", Value: amf0.Object{
			{Key: "times", Value: times},
			{Key: "filepositions", Value: positions},
		}},
	}
	var payload []byte
	payload, _ = amf0.Encode(payload, "onMetaData")
	payload, _ = amf0.Encode(payload, metadata)
	return flv.Tag{Type: flv.TagTypeScript, Data: payload}
}

func newTestFLVTask(t *testing.T) (*Task[flv.Item], *FLVStrategy) {
	t.Helper()
	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)

	strategy := NewFLVStrategy(FLVStrategyConfig{
		FilenameTemplate: "out",
	}, sb, nil, TemplateData{})
	return NewTask[flv.Item](strategy, nil, nil), strategy
}

func TestFLVStrategyWritesHeaderOnce(t *testing.T) {
	task, _ := newTestFLVTask(t)

	require.NoError(t, task.WriteItem(flv.Header{HasAudio: true, HasVideo: true}))
	require.NoError(t, task.WriteItem(flv.Tag{Type: flv.TagTypeAudio, Data: []byte{0xAF, 0x01, 0x00}}))
	require.NoError(t, task.Close())

	state := task.State()
	data, err := os.ReadFile(state.CurrentPath)
	require.NoError(t, err)
	assert.Equal(t, "FLV", string(data[0:3]))
}

func TestFLVStrategyBackpatchesKeyframeIndex(t *testing.T) {
	task, _ := newTestFLVTask(t)

	require.NoError(t, task.WriteItem(flv.Header{HasAudio: true, HasVideo: true}))
	require.NoError(t, task.WriteItem(reservedScriptTagForTest(4)))

	keyFrame := flv.Tag{
		Type:        flv.TagTypeVideo,
		TimestampMS: 0,
		Data:        []byte{0x17, 0x01, 0x00, 0x00, 0x00, 0xAA, 0xBB},
	}
	interFrame := flv.Tag{
		Type:        flv.TagTypeVideo,
		TimestampMS: 40,
		Data:        []byte{0x27, 0x01, 0x00, 0x00, 0x00, 0xCC},
	}
	require.NoError(t, task.WriteItem(keyFrame))
	require.NoError(t, task.WriteItem(interFrame))
	require.NoError(t, task.Close())

	path := task.State().CurrentPath
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)

	// Header(13) + reserved script tag.
	scriptTag := reservedScriptTagForTest(4)
	scriptTagLen := int64(flv.TagHeaderSize + len(scriptTag.Data) + flv.PrevTagSizeSize)
	hdr := make([]byte, flv.TagHeaderSize)
	_, err = f.ReadAt(hdr, flvFixedHeaderSize)
	require.NoError(t, err)
	assert.Equal(t, flv.TagTypeScript, flv.TagType(hdr[0]))

	body := make([]byte, len(scriptTag.Data))
	_, err = f.ReadAt(body, flvFixedHeaderSize+flv.TagHeaderSize)
	require.NoError(t, err)

	name, rest, err := amf0.Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "onMetaData", name)

	meta, _, err := amf0.Decode(rest)
	require.NoError(t, err)
	obj, ok := meta.(amf0.Object)
	require.True(t, ok)

	kfVal, ok := obj.Get("keyframes")
	require.True(t, ok)
	kfObj, ok := kfVal.(amf0.Object)
	require.True(t, ok)
	timesVal, _ := kfObj.Get("times")
	times, ok := timesVal.(amf0.StrictArray)
	require.True(t, ok)
	assert.NotEmpty(t, times)
	assert.Equal(t, float64(0), times[0])

	keyFrameLen := int64(flv.TagHeaderSize + len(keyFrame.Data) + flv.PrevTagSizeSize)
	interFrameLen := int64(flv.TagHeaderSize + len(interFrame.Data) + flv.PrevTagSizeSize)
	expectedSize := int64(flvFixedHeaderSize) + scriptTagLen + keyFrameLen + interFrameLen
	assert.Equal(t, expectedSize, info.Size())
}

func TestFLVStrategyRotatesOnMidFileHeader(t *testing.T) {
	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	strategy := NewFLVStrategy(FLVStrategyConfig{FilenameTemplate: "out_%i"}, sb, nil, TemplateData{})
	task := NewTask[flv.Item](strategy, nil, nil)

	require.NoError(t, task.WriteItem(flv.Header{HasAudio: true, HasVideo: true}))
	require.NoError(t, task.WriteItem(flv.Tag{Type: flv.TagTypeAudio, Data: []byte{0xAF, 0x01}}))
	firstPath := task.State().CurrentPath

	require.NoError(t, task.WriteItem(flv.Header{HasAudio: true, HasVideo: true}))
	require.NoError(t, task.WriteItem(flv.Tag{Type: flv.TagTypeAudio, Data: []byte{0xAF, 0x01}}))
	secondPath := task.State().CurrentPath
	require.NoError(t, task.Close())

	assert.NotEqual(t, firstPath, secondPath)
	assert.Equal(t, uint32(1), task.State().FileSequenceNumber)

	data, err := os.ReadFile(secondPath)
	require.NoError(t, err)
	assert.Equal(t, "FLV", string(data[0:3]))
}

func TestFLVStrategyRotatesOnMaxSize(t *testing.T) {
	sb, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	strategy := NewFLVStrategy(FLVStrategyConfig{
		FilenameTemplate: "out_%i",
		MaxSizeBytes:     40,
	}, sb, nil, TemplateData{})
	task := NewTask[flv.Item](strategy, nil, nil)

	require.NoError(t, task.WriteItem(flv.Header{HasAudio: true, HasVideo: true}))
	for i := 0; i < 20; i++ {
		require.NoError(t, task.WriteItem(flv.Tag{
			Type: flv.TagTypeVideo,
			Data: make([]byte, 20),
		}))
	}
	require.NoError(t, task.Close())

	seqN := task.State().FileSequenceNumber
	require.GreaterOrEqual(t, seqN, uint32(4))

	for i := uint32(0); i < seqN; i++ {
		path, err := sb.ResolvePath(fmt.Sprintf("out_%04d.flv", i))
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(data), flvFixedHeaderSize)
		assert.Equalf(t, "FLV", string(data[0:3]), "file %d does not begin with an FLV header", i)
	}
}
