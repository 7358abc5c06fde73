package storagenode

import "context"

func ctxTest() context.Context { return context.Background() }
