package statsticker

import "os"

func currentPID() int { return os.Getpid() }
