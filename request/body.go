// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
)

const badBodyTypeMsg = "retryx/request: invalid type (for body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// BodyBytes buffers a request body given as nil, string, []byte,
// io.Reader or io.ReadCloser.
//
// A []byte is returned as is, without copying. A reader is read to EOF
// and, if it is also an io.Closer, closed. If reading or closing fails
// BodyBytes returns the error and no bytes. Any other type is an error.
func BodyBytes(body any) ([]byte, error) {
	var r io.Reader
	switch x := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case io.Reader:
		r = x
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
	b, err := io.ReadAll(r)
	if c, ok := r.(io.Closer); ok && err == nil {
		err = c.Close()
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
