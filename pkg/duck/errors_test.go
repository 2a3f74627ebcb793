// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package duck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.False(t, isAlreadyAttached(nil))
	assert.False(t, isNotAttached(nil))
	assert.False(t, isAccessDenied(nil))
	assert.False(t, isMissingResource(nil))

	assert.True(t, isAlreadyAttached(errors.New(`database "prod" is already attached`)))
	assert.True(t, isAlreadyAttached(errors.New("Catalog Error: name already exists")))
	assert.False(t, isAlreadyAttached(errors.New("connection refused")))

	assert.True(t, isNotAttached(errors.New(`database "prod" is not attached`)))
	assert.True(t, isNotAttached(errors.New(`Catalog "x" does not exist`)))
	assert.False(t, isNotAttached(errors.New("syntax error")))

	assert.True(t, isAccessDenied(errors.New("ERROR: permission denied for table secrets")))
	assert.True(t, isAccessDenied(errors.New("Access denied for user 'ro'@'%'")))
	assert.False(t, isAccessDenied(errors.New("disk full")))

	assert.True(t, isMissingResource(errors.New("HTTP Error: 404 Not Found")))
	assert.True(t, isMissingResource(errors.New("IO Error: no such file")))
	assert.False(t, isMissingResource(errors.New("timeout exceeded")))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"orders"`, quoteIdent("orders"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'hello'`, quoteLiteral("hello"))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}
