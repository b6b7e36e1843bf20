// Package fuzztests houses Go fuzz harnesses for the ember front end and code
// generator. They guard against panics on arbitrary input.
//
// Назначение: загружать байты в FileSet и прогонять их через лексер, компилятор
// и дизассемблер.
//
// Не делает: выполнение программ (произвольный вход может не завершиться).
package fuzztests
