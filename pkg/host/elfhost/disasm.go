package elfhost

import (
	"debug/elf"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// ref is an instruction at from computing the address to.
type ref struct {
	from uint64
	to   uint64
}

// disassembler returns the data addresses computed by the code in body,
// which is loaded at pc.
type disassembler func(pc uint64, body []byte) []ref

func disassemblerFor(m elf.Machine) (disassembler, error) {
	switch m {
	case elf.EM_X86_64:
		return func(pc uint64, body []byte) []ref { return x86Refs(pc, body, 64) }, nil
	case elf.EM_386:
		return func(pc uint64, body []byte) []ref { return x86Refs(pc, body, 32) }, nil
	case elf.EM_AARCH64:
		return arm64Refs, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedArch, "%s", m)
	}
}

// x86Refs collects RIP-relative memory operands, absolute displacements and
// immediates. Most immediates are not addresses; the caller keeps only the
// ones landing on a string. Undecodable bytes are skipped one at a time.
func x86Refs(pc uint64, body []byte, mode int) []ref {
	var res []ref
	for off := 0; off < len(body); {
		inst, err := x86asm.Decode(body[off:], mode)
		if err != nil || inst.Len == 0 {
			off++
			continue
		}
		at := pc + uint64(off)
		for _, arg := range inst.Args {
			if arg == nil {
				break
			}
			if to, ok := x86Target(at, inst, arg); ok {
				res = append(res, ref{from: at, to: to})
			}
		}
		off += inst.Len
	}
	return res
}

func x86Target(at uint64, inst x86asm.Inst, arg x86asm.Arg) (uint64, bool) {
	switch a := arg.(type) {
	case x86asm.Mem:
		if a.Base == x86asm.RIP {
			// disp32 is signed, the decoder does not extend it
			return uint64(int64(at) + int64(inst.Len) + int64(int32(a.Disp))), true
		}
		if a.Base == 0 && a.Index == 0 && a.Disp > 0 {
			return uint64(a.Disp), true
		}
	case x86asm.Imm:
		if a > 0 {
			return uint64(a), true
		}
	}
	return 0, false
}

// arm64Refs follows ADRP page loads into the ADD or ADR that complete the
// address, the way compilers materialise pointers to literals.
func arm64Refs(pc uint64, body []byte) []ref {
	var (
		res   []ref
		pages = map[arm64asm.Reg]uint64{}
	)
	for off := 0; off+4 <= len(body); off += 4 {
		at := pc + uint64(off)
		inst, err := arm64asm.Decode(body[off : off+4])
		if err != nil {
			continue
		}
		switch inst.Op {
		case arm64asm.ADRP:
			reg, ok1 := arm64Reg(inst.Args[0])
			rel, ok2 := inst.Args[1].(arm64asm.PCRel)
			if ok1 && ok2 {
				pages[reg] = uint64(int64(at)+int64(rel)) &^ 0xfff
			}
		case arm64asm.ADR:
			if rel, ok := inst.Args[1].(arm64asm.PCRel); ok {
				res = append(res, ref{from: at, to: uint64(int64(at) + int64(rel))})
			}
		case arm64asm.ADD:
			dst, ok1 := arm64Reg(inst.Args[0])
			src, ok2 := arm64Reg(inst.Args[1])
			if !ok1 || !ok2 || inst.Args[2] == nil || inst.Args[3] != nil {
				break
			}
			page, hasPage := pages[src]
			imm, hasImm := arm64Immediate(inst.Args[2])
			delete(pages, dst)
			if hasPage && hasImm {
				res = append(res, ref{from: at, to: page + imm})
			}
		}
	}
	return res
}

func arm64Reg(arg arm64asm.Arg) (arm64asm.Reg, bool) {
	switch a := arg.(type) {
	case arm64asm.Reg:
		return a, true
	case arm64asm.RegSP:
		return arm64asm.Reg(a), true
	}
	return 0, false
}

// arm64Immediate reads an unshifted immediate operand.
func arm64Immediate(arg arm64asm.Arg) (uint64, bool) {
	switch a := arg.(type) {
	case arm64asm.Imm:
		return uint64(a.Imm), true
	case arm64asm.ImmShift:
		s := a.String()
		if strings.HasPrefix(s, "#0x") {
			if v, err := strconv.ParseUint(s[3:], 16, 64); err == nil {
				return v, true
			}
		} else if strings.HasPrefix(s, "#") {
			if v, err := strconv.ParseUint(s[1:], 10, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
