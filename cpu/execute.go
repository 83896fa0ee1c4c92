package cpu

// execute dispatches one decoded instruction. The PC is advanced to
// the next word up front; control transfers overwrite it. PC-relative
// targets are measured from the address of the next instruction.
func (cpu *Cpu) execute(inst Instruction) (err error) {
	next := cpu.Reg[REG_PC] + 1
	cpu.Reg[REG_PC] = next

	switch inst.Op {
	case OP_ADD:
		operand := inst.Imm
		if inst.Mode == MODE_REGISTER {
			operand = cpu.Reg[inst.SR2]
		}
		result := cpu.Reg[inst.SR1] + operand // wraps mod 2^16
		cpu.Reg[inst.DR] = result
		cpu.setCC(result)

	case OP_AND:
		operand := inst.Imm
		if inst.Mode == MODE_REGISTER {
			operand = cpu.Reg[inst.SR2]
		}
		result := cpu.Reg[inst.SR1] & operand
		cpu.Reg[inst.DR] = result
		cpu.setCC(result)

	case OP_NOT:
		result := ^cpu.Reg[inst.SR1]
		cpu.Reg[inst.DR] = result
		cpu.setCC(result)

	case OP_BR:
		psr := cpu.Reg[REG_PSR]
		take := (inst.N && psr&FLAG_NEGATIVE != 0) ||
			(inst.Z && psr&FLAG_ZERO != 0) ||
			(inst.P && psr&FLAG_POSITIVE != 0)
		if take {
			cpu.Reg[REG_PC] = next + inst.Imm
		}

	case OP_JMP:
		cpu.Reg[REG_PC] = cpu.Reg[inst.SR1]

	case OP_JSR:
		// Read the base before linking; the base may be R7.
		target := next + inst.Imm
		if inst.Mode == MODE_REGISTER {
			target = cpu.Reg[inst.SR1]
		}
		cpu.Reg[REG_R7] = next
		cpu.Reg[REG_PC] = target

	case OP_LD:
		value := cpu.Mem.Read(next + inst.Imm)
		cpu.Reg[inst.DR] = value
		cpu.setCC(value)

	case OP_LDI:
		address := cpu.Mem.Read(next + inst.Imm)
		value := cpu.Mem.Read(address)
		cpu.Reg[inst.DR] = value
		cpu.setCC(value)

	case OP_LDR:
		value := cpu.Mem.Read(cpu.Reg[inst.SR1] + inst.Imm)
		cpu.Reg[inst.DR] = value
		cpu.setCC(value)

	case OP_LEA:
		address := next + inst.Imm
		cpu.Reg[inst.DR] = address
		cpu.setCC(address)

	case OP_ST:
		cpu.Mem.Write(next+inst.Imm, cpu.Reg[inst.DR])

	case OP_STI:
		address := cpu.Mem.Read(next + inst.Imm)
		cpu.Mem.Write(address, cpu.Reg[inst.DR])

	case OP_STR:
		cpu.Mem.Write(cpu.Reg[inst.SR1]+inst.Imm, cpu.Reg[inst.DR])

	case OP_TRAP:
		cpu.Reg[REG_R7] = next
		if inst.Vect == TRAP_HALT {
			// Handled at the machine level instead of dispatching
			// into a service routine; the PC stays past the TRAP so
			// Resume continues after it.
			cpu.Mem.Halt()
			break
		}
		cpu.Reg[REG_PC] = cpu.Mem.Read(TRAP_TABLE + inst.Vect)

	case OP_RTI:
		if cpu.Reg[REG_PSR]&PSR_SUPERVISOR == 0 {
			err = ErrPrivilege
			break
		}
		sp := cpu.Reg[REG_R6]
		cpu.Reg[REG_PC] = cpu.Mem.Read(sp)
		cpu.Reg[REG_PSR] = cpu.Mem.Read(sp + 1)
		cpu.Reg[REG_R6] = cpu.Reg[REG_USP]

	default:
		// Decode rejects reserved opcodes before dispatch.
		err = ErrReservedOpcode(uint16(inst.Op) << 12)
	}

	return
}
