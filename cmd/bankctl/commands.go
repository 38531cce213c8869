package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bankcap/ledger-contract/contracts"
	"github.com/bankcap/ledger-contract/deploy"
	"github.com/bankcap/ledger-contract/internal/config"
	"github.com/bankcap/ledger-contract/rpc/bank"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// loadConfig reads configuration file and applies global flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	if v := c.GlobalString("rpc"); v != "" {
		cfg.RPC.Endpoint = v
	}
	if v := c.GlobalString("wallet"); v != "" {
		cfg.Wallet.Path = v
	}
	if v := c.GlobalString("address"); v != "" {
		cfg.Wallet.Address = v
	}
	if v := c.GlobalString("contract"); v != "" {
		cfg.Contract.Hash = v
	}
	if v, ok := os.LookupEnv(passwordEnv); ok {
		cfg.Wallet.Password = v
	}

	return cfg, nil
}

// withBlockchain runs f with connected remote blockchain.
func withBlockchain(c *cli.Context, f func(context.Context, *remoteBlockchain) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	log, err := newLogger(c.GlobalBool("debug"))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("init logger: %w", err), 1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	b, err := newRemoteBlockchain(ctx, cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer b.close()

	err = f(ctx, b)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	return nil
}

func amountArg(c *cli.Context) (string, error) {
	s := c.String("amount")
	if s == "" {
		return "", errors.New("missing --amount")
	}
	return s, nil
}

func deployAction(c *cli.Context) error {
	return withBlockchain(c, func(ctx context.Context, b *remoteBlockchain) error {
		if v := c.String("build-dir"); v != "" {
			b.cfg.Contract.BuildDir = v
		}
		if v := c.String("bank-cap"); v != "" {
			b.cfg.Deploy.BankCap = v
		}
		if v := c.String("withdrawal-limit"); v != "" {
			b.cfg.Deploy.WithdrawalLimit = v
		}

		bankCap, limit, err := b.cfg.Deploy.Amounts()
		if err != nil {
			return err
		}

		ctr, err := contracts.GetBank(b.cfg.Contract.BuildDir)
		if err != nil {
			return err
		}

		acc, err := b.localAccount()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, b.cfg.RPC.WaitTimeout)
		defer cancel()

		addr, err := deploy.Deploy(ctx, deploy.Prm{
			Logger:       b.log,
			Blockchain:   b.rpc,
			LocalAccount: acc,
			Contract: deploy.CommonDeployPrm{
				NEF:      ctr.NEF,
				Manifest: ctr.Manifest,
			},
			BankCap:         bankCap,
			WithdrawalLimit: limit,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "Contract: %s (%s)\n", addr.StringLE(), address.Uint160ToString(addr))
		return nil
	})
}

func depositAction(c *cli.Context) error {
	return withBlockchain(c, func(ctx context.Context, b *remoteBlockchain) error {
		s, err := amountArg(c)
		if err != nil {
			return err
		}

		amount, err := config.ParseGAS(s)
		if err != nil {
			return err
		}

		w, act, err := b.writer()
		if err != nil {
			return err
		}

		txHash, vub, err := w.Deposit(amount)
		if err != nil {
			return fmt.Errorf("send transaction: %w", err)
		}

		appLog, err := b.await(ctx, act, txHash, vub)
		if err != nil {
			return err
		}

		evs, err := bank.DepositEventsFromApplicationLog(appLog)
		if err != nil {
			return err
		}

		for i := range evs {
			fmt.Fprintf(c.App.Writer, "Deposited %s GAS, balance: %s GAS\n",
				config.FormatGAS(evs[i].Amount), config.FormatGAS(evs[i].Balance))
		}
		return nil
	})
}

func withdrawAction(c *cli.Context) error {
	return withBlockchain(c, func(ctx context.Context, b *remoteBlockchain) error {
		s, err := amountArg(c)
		if err != nil {
			return err
		}

		amount, err := config.ParseGAS(s)
		if err != nil {
			return err
		}

		w, act, err := b.writer()
		if err != nil {
			return err
		}

		txHash, vub, err := w.Withdraw(amount)
		if err != nil {
			return fmt.Errorf("send transaction: %w", err)
		}

		appLog, err := b.await(ctx, act, txHash, vub)
		if err != nil {
			return err
		}

		evs, err := bank.WithdrawalEventsFromApplicationLog(appLog)
		if err != nil {
			return err
		}

		for i := range evs {
			fmt.Fprintf(c.App.Writer, "Withdrawn %s GAS, balance: %s GAS\n",
				config.FormatGAS(evs[i].Amount), config.FormatGAS(evs[i].Balance))
		}
		return nil
	})
}

func balanceAction(c *cli.Context) error {
	return withBlockchain(c, func(_ context.Context, b *remoteBlockchain) error {
		r, err := b.reader()
		if err != nil {
			return err
		}

		var acc = c.Args().First()
		if acc == "" {
			a, err := b.localAccount()
			if err != nil {
				return err
			}
			acc = a.Address
		}

		h, err := config.ParseHash160(acc)
		if err != nil {
			return err
		}

		v, err := r.GetBalance(h)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}

		fmt.Fprintf(c.App.Writer, "%s GAS\n", config.FormatGAS(v))
		return nil
	})
}

func statsAction(c *cli.Context) error {
	return withBlockchain(c, func(_ context.Context, b *remoteBlockchain) error {
		r, err := b.reader()
		if err != nil {
			return err
		}

		st, err := r.GetBankStats()
		if err != nil {
			return fmt.Errorf("get bank stats: %w", err)
		}

		full, err := r.IsBankFull()
		if err != nil {
			return fmt.Errorf("check bank capacity: %w", err)
		}

		owner, err := r.Owner()
		if err != nil {
			return fmt.Errorf("get owner: %w", err)
		}

		fmt.Fprintf(c.App.Writer, "Owner:            %s\n", address.Uint160ToString(owner))
		fmt.Fprintf(c.App.Writer, "Total deposits:   %s GAS\n", config.FormatGAS(st.TotalDeposits))
		fmt.Fprintf(c.App.Writer, "Deposit count:    %d\n", st.DepositCount)
		fmt.Fprintf(c.App.Writer, "Withdrawal count: %d\n", st.WithdrawalCount)
		fmt.Fprintf(c.App.Writer, "Cap usage:        %s GAS\n", config.FormatGAS(st.CapUsage))
		fmt.Fprintf(c.App.Writer, "Bank cap:         %s GAS\n", config.FormatGAS(st.BankCap))
		fmt.Fprintf(c.App.Writer, "Full:             %t\n", full)
		return nil
	})
}

func limitAction(c *cli.Context) error {
	return withBlockchain(c, func(_ context.Context, b *remoteBlockchain) error {
		r, err := b.reader()
		if err != nil {
			return err
		}

		v, err := r.GetWithdrawalLimit()
		if err != nil {
			return fmt.Errorf("get withdrawal limit: %w", err)
		}

		fmt.Fprintf(c.App.Writer, "%s GAS\n", config.FormatGAS(v))
		return nil
	})
}

func setLimitAction(c *cli.Context) error {
	return withBlockchain(c, func(ctx context.Context, b *remoteBlockchain) error {
		s, err := amountArg(c)
		if err != nil {
			return err
		}

		limit, err := config.ParseGAS(s)
		if err != nil {
			return err
		}

		w, act, err := b.writer()
		if err != nil {
			return err
		}

		txHash, vub, err := w.SetWithdrawalLimit(limit)
		if err != nil {
			return fmt.Errorf("send transaction: %w", err)
		}

		appLog, err := b.await(ctx, act, txHash, vub)
		if err != nil {
			return err
		}

		evs, err := bank.WithdrawalLimitUpdatedEventsFromApplicationLog(appLog)
		if err != nil {
			return err
		}

		for i := range evs {
			fmt.Fprintf(c.App.Writer, "Withdrawal limit changed: %s -> %s GAS\n",
				config.FormatGAS(evs[i].OldLimit), config.FormatGAS(evs[i].NewLimit))
		}
		return nil
	})
}

func accountsAction(c *cli.Context) error {
	return withBlockchain(c, func(_ context.Context, b *remoteBlockchain) error {
		r, err := b.reader()
		if err != nil {
			return err
		}

		var accs []bank.AccountBalance

		sessionID, iter, err := r.Accounts()
		if err == nil && iter.ID != nil {
			accs, err = r.TraverseAccounts(sessionID, iter, 100)
		} else {
			b.log.Debug("iterator sessions are not available, expanding iterator in VM", zap.Error(err))
			accs, err = r.AccountsExpanded(c.Int("max"))
		}
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}

		for i := range accs {
			fmt.Fprintf(c.App.Writer, "%s\t%s GAS\n",
				address.Uint160ToString(accs[i].Account), config.FormatGAS(accs[i].Balance))
		}
		return nil
	})
}

func auditAction(c *cli.Context) error {
	return withBlockchain(c, func(_ context.Context, b *remoteBlockchain) error {
		h, err := b.contractHash()
		if err != nil {
			return err
		}

		s := newLedgerState()

		err = b.iterateContractStorage(h, s.add)
		if err != nil {
			return fmt.Errorf("read ledger storage: %w", err)
		}

		err = s.check()
		if err != nil {
			return err
		}

		b.log.Info("ledger is consistent",
			zap.Stringer("owner", s.owner),
			zap.Int("accounts", len(s.balances)),
			zap.Stringer("total", s.total),
			zap.Stringer("deposits", s.deposits),
			zap.Stringer("withdrawals", s.withdrawals),
			zap.Stringer("withdrawal limit", s.withdrawalLimit))

		fmt.Fprintf(c.App.Writer, "OK: %d accounts, %s GAS of %s GAS\n",
			len(s.balances), config.FormatGAS(s.total), config.FormatGAS(s.bankCap))
		return nil
	})
}
