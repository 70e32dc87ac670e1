package dcc

// MaxFunction is the highest function number covered by function groups 1 and 2
const MaxFunction = 12

// Functions is a set of function states, bit n holds Fn (F0 is the headlight FL)
type Functions uint16

// Set switches the function num on or off, numbers above MaxFunction are ignored
func (f Functions) Set(num int, on bool) Functions {
	if num < 0 || num > MaxFunction {
		return f
	}
	if on {
		return f | 1<<uint(num)
	}
	return f &^ (1 << uint(num))
}

func (f Functions) On(num int) bool {
	if num < 0 || num > MaxFunction {
		return false
	}
	return f&(1<<uint(num)) != 0
}

// Active lists the numbers of functions that are on
func (f Functions) Active() []int {
	var res []int
	for i := 0; i <= MaxFunction; i++ {
		if f.On(i) {
			res = append(res, i)
		}
	}
	return res
}

// Group1 returns FL F4 F3 F2 F1
func (f Functions) Group1() byte {
	return byte(f&1)<<4 | byte(f>>1)&0x0F
}

// Group2Low returns F8 F7 F6 F5
func (f Functions) Group2Low() byte {
	return byte(f>>5) & 0x0F
}

// Group2High returns F12 F11 F10 F9
func (f Functions) Group2High() byte {
	return byte(f>>9) & 0x0F
}

// FunctionsFromGroups is the reverse of Group1, Group2Low and Group2High
func FunctionsFromGroups(group1, group2Low, group2High byte) Functions {
	f := Functions(group1>>4) & 1
	f |= Functions(group1&0x0F) << 1
	f |= Functions(group2Low&0x0F) << 5
	f |= Functions(group2High&0x0F) << 9
	return f
}
