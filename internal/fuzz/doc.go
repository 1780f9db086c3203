// Package fuzztests houses Go fuzz harnesses for the checker pipeline
// (source -> lexer -> parser -> MIR -> borrow check). They guard against
// panics and hangs on arbitrary input.
//
// Назначение: прогонять произвольные байты через лексер, парсер и весь
// driver.CheckSource.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
package fuzztests
