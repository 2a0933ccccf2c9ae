package memory

import "github.com/pkg/errors"

// DefaultManagerFrozenError is the error returned from ConfigureDefaultManager once the
// process default manager has been constructed; its configuration is read a single time
// and cannot change afterwards.
var DefaultManagerFrozenError error = errors.New("the process default memory manager is already constructed")
