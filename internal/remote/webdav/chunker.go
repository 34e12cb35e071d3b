package webdav

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
)

// Chunk 源文件中一段连续字节，Seq 从 1 开始
type Chunk struct {
	Seq    int
	Offset int64
	Data   []byte
}

// Name 会话内的分块名：4 位补零序号
func (c Chunk) Name() string {
	return fmt.Sprintf("%04d", c.Seq)
}

// splitFile 惰性地按 size 切分文件；文件在遍历开始时打开、结束（或提前中断）时关闭。
// 序列只能前进，重新遍历会重新打开文件。
func splitFile(path string, size int64) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(Chunk{}, err)
			return
		}
		defer f.Close()

		var offset int64
		for seq := 1; ; seq++ {
			buf := make([]byte, size)
			n, err := io.ReadFull(f, buf)
			if n > 0 {
				if !yield(Chunk{Seq: seq, Offset: offset, Data: buf[:n]}, nil) {
					return
				}
				offset += int64(n)
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				yield(Chunk{}, fmt.Errorf("read chunk %d: %w", seq, err))
				return
			}
		}
	}
}
