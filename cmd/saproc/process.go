package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/ingest"
	"holosim-indexer/internal/logic/writer"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/store"
	"holosim-indexer/internal/types"

	"gopkg.in/yaml.v3"
)

type options struct {
	Program string
	Stats   bool
	Output  string
	Limit   int
	Write   bool
	Workers int
}

// parsedAccount 是 json / yaml 输出的单条账户
type parsedAccount struct {
	AccountPubkey string `json:"account_pubkey" yaml:"account_pubkey"`
	ProgramID     string `json:"program_id" yaml:"program_id"`
	AccountType   string `json:"account_type" yaml:"account_type"`
	Lamports      uint64 `json:"lamports" yaml:"lamports"`
	RawDataLength int    `json:"raw_data_length" yaml:"raw_data_length"`
	ContentHash   string `json:"content_hash" yaml:"content_hash"`
	Implemented   bool   `json:"implemented" yaml:"implemented"`
	ParsedData    any    `json:"parsed_data" yaml:"parsed_data"`
}

func process(ctx context.Context, out io.Writer, s *store.Store, opt options) error {
	switch opt.Output {
	case "summary", "detailed", "json", "yaml":
	default:
		return usageError("unknown output format %q", opt.Output)
	}

	if opt.Stats {
		return printStats(ctx, out, s)
	}

	raws, err := loadAccounts(ctx, s, opt)
	if err != nil {
		return err
	}
	logger.Infof("[saproc] 读取到 %d 个账户", len(raws))

	if opt.Write {
		b := ingest.NewBulk(nil, s, writer.New(s, writer.Options{}), opt.Workers)
		report, err := b.Redecode(ctx, raws)
		if err != nil {
			return err
		}
		return printSummary(out, report.Fetched, report.Decoded, report.Failed, report.TypeCounts, &report.Written)
	}

	res := accountparser.DecodeBatch(raws, opt.Workers)
	for _, f := range res.Errors {
		logger.Warnf("[saproc] 解码失败: address=%s, err=%v", f.Address, f.Err)
	}

	lamports := make(map[types.Pubkey]uint64, len(raws))
	for _, raw := range raws {
		lamports[raw.Address] = raw.Lamports
	}
	if err := printRecords(out, opt.Output, res.Records, raws, lamports); err != nil {
		return err
	}
	if opt.Output == "summary" || opt.Output == "detailed" {
		return printSummary(out, len(raws), len(res.Records), len(res.Errors), res.TypeCounts, nil)
	}
	return nil
}

func loadAccounts(ctx context.Context, s *store.Store, opt options) ([]*core.RawAccount, error) {
	if opt.Program == "" {
		return s.AllAccounts(ctx, opt.Limit)
	}
	program, err := types.TryPubkeyFromBase58(opt.Program)
	if err != nil {
		return nil, usageError("invalid program id %q: %v", opt.Program, err)
	}
	return s.AccountsByProgram(ctx, program, opt.Limit)
}

func printRecords(out io.Writer, format string, recs []*core.DecodedRecord, raws []*core.RawAccount, lamports map[types.Pubkey]uint64) error {
	lengths := make(map[types.Pubkey]int, len(raws))
	for _, raw := range raws {
		lengths[raw.Address] = len(raw.Data)
	}

	items := make([]parsedAccount, 0, len(recs))
	for _, rec := range recs {
		items = append(items, parsedAccount{
			AccountPubkey: rec.Address.String(),
			ProgramID:     rec.ProgramID.String(),
			AccountType:   rec.TypeName,
			Lamports:      lamports[rec.Address],
			RawDataLength: lengths[rec.Address],
			ContentHash:   rec.ContentHash.String(),
			Implemented:   rec.Implemented,
			ParsedData:    rec.Fields,
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(items)
	case "detailed":
		for _, it := range items {
			parsed, err := json.MarshalIndent(it.ParsedData, "  ", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Account: %s (%s)\n", it.AccountPubkey, it.AccountType)
			fmt.Fprintf(out, "  Program: %s\n", it.ProgramID)
			fmt.Fprintf(out, "  Lamports: %d\n", it.Lamports)
			fmt.Fprintf(out, "  Data length: %d bytes\n", it.RawDataLength)
			fmt.Fprintf(out, "  Parsed: %s\n\n", parsed)
		}
	}
	return nil
}

func printSummary(out io.Writer, total, decoded, failed int, typeCounts map[string]int, written *int) error {
	fmt.Fprintf(out, "Total accounts: %d\n", total)
	fmt.Fprintf(out, "Decoded: %d\n", decoded)
	fmt.Fprintf(out, "Errors: %d\n", failed)
	if written != nil {
		fmt.Fprintf(out, "Written: %d\n", *written)
	}
	fmt.Fprintln(out, "Account types:")
	names := make([]string, 0, len(typeCounts))
	for name := range typeCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %d\n", name, typeCounts[name])
	}
	return nil
}

func printStats(ctx context.Context, out io.Writer, s *store.Store) error {
	counts, err := s.CountsByProgram(ctx)
	if err != nil {
		return err
	}
	programs := make([]string, 0, len(counts))
	var total int64
	for p, n := range counts {
		programs = append(programs, p)
		total += n
	}
	sort.Strings(programs)

	fmt.Fprintln(out, "Raw accounts:")
	for _, p := range programs {
		label := "Unknown"
		if pk, err := types.TryPubkeyFromBase58(p); err == nil {
			label = consts.ProgramLabel(pk)
		}
		fmt.Fprintf(out, "  %s (%s): %d\n", p, label, counts[p])
	}
	fmt.Fprintf(out, "  Total: %d\n", total)

	fmt.Fprintln(out, "Decoded accounts:")
	for _, table := range store.DecodedTables() {
		byType, err := s.CountsByType(ctx, table)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(byType))
		for t := range byType {
			names = append(names, t)
		}
		sort.Strings(names)
		fmt.Fprintf(out, "  %s:\n", table)
		for _, t := range names {
			fmt.Fprintf(out, "    %s: %d\n", t, byType[t])
		}
	}

	logs, err := s.RecentTransactionLogs(ctx, 5)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Recent transactions:")
	for _, l := range logs {
		fmt.Fprintf(out, "  %s slot=%d lines=%d\n", l.Signature, l.Slot, len(l.LogLines))
	}
	return nil
}
