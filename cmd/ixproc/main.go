package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"holosim-indexer/internal/config"
	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/monitor"
	"holosim-indexer/internal/logic/writer"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/server"
	"holosim-indexer/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/core/threading"
)

var (
	configFile = flag.String("f", "etc/ixproc.yaml", "the config file")
	dump       = flag.Bool("dump", false, "dump all program accounts before subscribing")
)

// indexerService 把已启动的 Monitor 与写入方作为一个整体接入 ServiceGroup。
// 停止时先停订阅并清空队列，再 flush 写入方。
type indexerService struct {
	m *monitor.Monitor
	w *writer.Writer
}

func (s indexerService) Start() { s.m.Wait() }

func (s indexerService) Stop() {
	s.m.Stop()
	if err := s.w.Stop(); err != nil {
		logx.Errorf("writer stop: %v", err)
	}
}

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 2
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	sc, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Errorf("service context init failed: %v", err)
		return 1
	}
	defer sc.Close()

	if *dump || c.DumpOnBoot {
		for _, program := range sc.Programs {
			report, err := sc.Bulk.DumpProgram(context.Background(), program)
			if err != nil {
				logger.Errorf("[ixproc] dump %s 失败: %v", consts.ProgramLabel(program), err)
				continue
			}
			logger.Infof("[ixproc] dump %s: fetched=%d decoded=%d failed=%d written=%d",
				consts.ProgramLabel(program), report.Fetched, report.Decoded, report.Failed, report.Written)
		}
	}

	feed, err := sc.NewFeed()
	if err != nil {
		logx.Errorf("feed init failed: %v", err)
		return 1
	}

	mon := sc.NewMonitor(feed)
	sc.Writer.Start()
	if err := mon.Start(); err != nil {
		if errors.Is(err, monitor.ErrNoSubscriptions) {
			for _, f := range mon.Failures() {
				logx.Errorf("%v", f)
			}
		}
		logx.Errorf("monitor start failed: %v", err)
		_ = sc.Writer.Stop()
		return 1
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(indexerService{m: mon, w: sc.Writer})
	if c.Http.Addr != "-" {
		sg.Add(server.New(c.Http.Addr, mon))
	}

	logx.Infof("Starting holosim indexer: programs=%d, feed=%s", len(sc.Programs), c.Feed)
	threading.GoSafe(sg.Start)

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
	return 0
}
