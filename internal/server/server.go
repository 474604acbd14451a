package server

// Данный сервер просто объединяет специфичные HTTP сервера, отвечающие за обработку конкретных сущностей
// Сейчас у нас есть только OpsServer, но их может быть несколько
type Server struct {
	OpsServer
}

func NewServer(
	opsServer OpsServer,
) Server {
	return Server{
		OpsServer: opsServer,
	}
}
