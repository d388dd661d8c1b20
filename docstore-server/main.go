package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/ngaut/log"

	"github.com/docstore-dev/docstore/config"
	"github.com/docstore-dev/docstore/server"
	"github.com/docstore-dev/docstore/server/api"
	"github.com/docstore-dev/docstore/storage"
	"github.com/docstore-dev/docstore/storage/badger_storage"
)

var (
	configPath = flag.String("config", "", "config file path")
	storeAddr  = flag.String("addr", "", "store address")
	engine     = flag.String("engine", "", "storage engine (memory or badger)")
)

func main() {
	flag.Parse()
	conf := loadConfig()
	if *storeAddr != "" {
		conf.StoreAddr = *storeAddr
	}
	if *engine != "" {
		conf.Engine = *engine
	}
	log.SetLevelByString(conf.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Infof("conf %+v", conf)

	var store storage.Storage
	if conf.Engine == config.EngineBadger {
		store = badger_storage.NewBadgerStorage(conf.DBPath)
	} else {
		store = storage.NewMemStorage()
	}
	if err := store.Start(); err != nil {
		log.Fatal(err)
	}

	svr, err := server.NewServer(conf, store)
	if err != nil {
		log.Fatal(err)
	}

	httpServer := &http.Server{
		Addr:    conf.StoreAddr,
		Handler: api.NewHandler(svr),
	}
	handleSignal(httpServer)

	log.Infof("listening on %v", conf.StoreAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	if err := svr.Stop(); err != nil {
		log.Fatal(err)
	}
	log.Info("Server stopped.")
}

func loadConfig() *config.Config {
	conf := config.NewDefaultConfig()
	if *configPath != "" {
		_, err := toml.DecodeFile(*configPath, conf)
		if err != nil {
			panic(err)
		}
	}
	return conf
}

func handleSignal(httpServer *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigCh
		log.Infof("Got signal [%s] to exit.", sig)
		httpServer.Close()
	}()
}
